package features

// Vector is a binary feature vector laid out in schema order.
type Vector struct {
	schema *Schema
	values []float32
}

// Encode marks every selected symptom with 1 and every other schema entry with
// 0. Names outside the schema are ignored; callers reject empty and unknown
// selections before encoding.
func Encode(schema *Schema, selected []string) Vector {
	values := make([]float32, schema.Len())
	for _, name := range selected {
		if i, ok := schema.index[name]; ok {
			values[i] = 1
		}
	}
	return Vector{schema: schema, values: values}
}

func (v Vector) Len() int { return len(v.values) }

// Values returns the vector as float32, the dtype the models consume.
func (v Vector) Values() []float32 {
	out := make([]float32, len(v.values))
	copy(out, v.values)
	return out
}

// Map returns the symptom -> {0,1} view of the vector.
func (v Vector) Map() map[string]int {
	out := make(map[string]int, len(v.values))
	for i, name := range v.schema.names {
		out[name] = int(v.values[i])
	}
	return out
}

// Active lists the names set to 1, in schema order.
func (v Vector) Active() []string {
	var out []string
	for i, value := range v.values {
		if value == 1 {
			out = append(out, v.schema.names[i])
		}
	}
	return out
}
