package dataset

import "fmt"

// Collection identifies one of the fixed collections of the dataset.
type Collection int

const (
	People Collection = iota
	Cars
	Animals
)

type collectionInfo struct {
	key  string // JSON key in the snapshot and route segment
	noun string // singular, used in not-found errors
}

var collections = [...]collectionInfo{
	People:  {key: "people", noun: "person"},
	Cars:    {key: "cars", noun: "car"},
	Animals: {key: "animals", noun: "animal"},
}

// Collections returns all collections in route registration order.
func Collections() []Collection {
	return []Collection{People, Cars, Animals}
}

// ParseCollection maps a JSON key ("people", "cars", "animals") to a Collection.
func ParseCollection(key string) (Collection, error) {
	for i, info := range collections {
		if info.key == key {
			return Collection(i), nil
		}
	}
	return 0, fmt.Errorf("unknown collection %q", key)
}

// Key returns the JSON key of the collection.
func (c Collection) Key() string {
	return c.info().key
}

// Noun returns the singular name of an entry of the collection.
func (c Collection) Noun() string {
	return c.info().noun
}

// Path returns the route path of the collection, e.g. "/people".
func (c Collection) Path() string {
	return "/" + c.info().key
}

func (c Collection) String() string {
	return c.info().key
}

func (c Collection) info() collectionInfo {
	if c < 0 || int(c) >= len(collections) {
		panic(fmt.Sprintf("dataset: invalid collection %d", int(c)))
	}
	return collections[c]
}
