package app

var (
	Name = "pki-tool"

	Repository,
	Package,
	Version,
	BuildDate,
	BuildUser,
	GitBranch,
	GitTag,
	GitHash string
)

type AppVersion struct {
	Name       string `yaml:"name" json:"name"`
	Repository string `yaml:"repository" json:"repository"`
	Package    string `yaml:"package" json:"package"`
	Version    string `yaml:"version" json:"version"`
	GitBranch  string `yaml:"git-branch" json:"gitBranch"`
	GitTag     string `yaml:"git-tag" json:"gitTag"`
	GitHash    string `yaml:"git-hash" json:"gitHash"`
	BuildDate  string `yaml:"build-date" json:"buildDate"`
	BuildUser  string `yaml:"build-user" json:"buildUser"`
}

// Returns the build information injected by the linker
func GetVersion() *AppVersion {
	return &AppVersion{
		Name:       Name,
		Repository: Repository,
		Package:    Package,
		Version:    Version,
		GitBranch:  GitBranch,
		GitTag:     GitTag,
		GitHash:    GitHash,
		BuildDate:  BuildDate,
		BuildUser:  BuildUser}
}
