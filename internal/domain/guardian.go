package domain

// GuardianRelation links a responsible adult to a student. Read-only
// collaborator data: it decides who may view a student's payments and who
// receives the receipt email.
type GuardianRelation struct {
	GuardianID    int64
	StudentID     int64
	Active        bool
	GuardianName  string
	GuardianEmail string
}
