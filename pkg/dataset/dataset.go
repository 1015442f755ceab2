// Package dataset defines the people/cars/animals dataset served by the data
// service, its seed content, the content hash used as ETag, and lookups over
// the stored (schema-less) snapshot.
package dataset

// Person is an entry of the people collection.
type Person struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Car is an entry of the cars collection.
type Car struct {
	ID    int    `json:"id" yaml:"id"`
	Model string `json:"model" yaml:"model"`
}

// Animal is an entry of the animals collection.
type Animal struct {
	ID   int    `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Dataset is the typed shape of the full snapshot.
// The service stores whatever a PUT sends, so a stored snapshot is not
// guaranteed to decode into this type.
type Dataset struct {
	People  []Person `json:"people" yaml:"people"`
	Cars    []Car    `json:"cars" yaml:"cars"`
	Animals []Animal `json:"animals" yaml:"animals"`
}

// Seed returns the dataset loaded into the cache at startup.
func Seed() Dataset {
	return Dataset{
		People: []Person{
			{ID: 1, Name: "Marcelo"},
			{ID: 2, Name: "João"},
			{ID: 3, Name: "Maria"},
		},
		Cars: []Car{
			{ID: 1, Model: "Fusca"},
			{ID: 2, Model: "Gol"},
			{ID: 3, Model: "Palio"},
		},
		Animals: []Animal{
			{ID: 1, Name: "Cachorro"},
			{ID: 2, Name: "Gato"},
			{ID: 3, Name: "Papagaio"},
		},
	}
}
