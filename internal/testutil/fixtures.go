// Package testutil holds fixtures shared by the package tests.
package testutil

// Address is a value-typed member of Person.
type Address struct {
	City string
	Zip  string
}

// Person is the subject type used across the query tests.
type Person struct {
	Name    string
	Age     int
	Email   *string
	Active  bool
	Tags    []string
	Address Address
	Manager *Person
}

// StrPtr returns a pointer to s.
func StrPtr(s string) *string {
	return &s
}

// People returns a fresh fixture set. Names are unique and the set covers
// nil and empty members, white-space names and non-ASCII text.
func People() []Person {
	ada := Person{
		Name:    "Ada",
		Age:     36,
		Email:   StrPtr("ada@example.com"),
		Active:  true,
		Tags:    []string{"math", "engines"},
		Address: Address{City: "London", Zip: "W1"},
	}
	return []Person{
		ada,
		{
			Name:    "Bob",
			Age:     52,
			Address: Address{City: "Paris", Zip: "75001"},
			Manager: &ada,
		},
		{
			Name:    "Anna",
			Age:     41,
			Email:   StrPtr(""),
			Active:  true,
			Tags:    []string{"ops"},
			Address: Address{City: "Lonsdale", Zip: "LA6"},
		},
		{
			Name:    "Zoë",
			Age:     19,
			Active:  true,
			Tags:    []string{},
			Address: Address{City: "Berlin", Zip: "10115"},
			Manager: &Person{Name: "Anna", Age: 41},
		},
		{
			Name:    "Dmitri",
			Age:     28,
			Email:   StrPtr("dmitri@example.com"),
			Tags:    []string{"go", "ops"},
			Address: Address{City: "London", Zip: "E2"},
		},
		{
			Name:    " ",
			Age:     64,
			Address: Address{City: "Oslo", Zip: "0150"},
		},
	}
}
