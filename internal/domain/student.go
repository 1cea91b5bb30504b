package domain

type Student struct {
	ID        int64
	FirstName string
	LastName  string
}

func (s Student) FullName() string {
	if s.FirstName == "" {
		return s.LastName
	}
	if s.LastName == "" {
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// Concept is what a debt is owed for (tuition, enrollment, materials, ...).
type Concept struct {
	ID   int64
	Name string
}
