package serializer

import "gopkg.in/yaml.v2"

type YAMLSerializer[E any] struct{}

func NewYAMLSerializer[E any]() Serializer[E] {
	return &YAMLSerializer[E]{}
}

func (ys YAMLSerializer[E]) Serialize(entity E) ([]byte, error) {
	return yaml.Marshal(entity)
}

func (ys YAMLSerializer[E]) Deserialize(data []byte, e any) error {
	return yaml.Unmarshal(data, e)
}

func (ys YAMLSerializer[E]) Type() SerializerType {
	return SERIALIZER_YAML
}

func (ys YAMLSerializer[E]) Name() string {
	return "yaml"
}

func (ys YAMLSerializer[E]) Extension() string {
	return ".yaml"
}
