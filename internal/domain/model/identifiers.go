package model

import "fmt"

// Sequence names for generated identifiers. Each counts per calendar year.
const (
	SequenceSupervisor = "supervisor"
	SequenceContestant = "contestant"
)

// IDSequence is the authoritative allocator behind employee ids and registration numbers.
type IDSequence struct {
	Name  string `gorm:"primaryKey;size:50"`
	Year  int    `gorm:"primaryKey;autoIncrement:false"`
	Value int64  `gorm:"not null"`
}

func FormatEmployeeID(year int, seq int64) string {
	return fmt.Sprintf("SUP-%04d-%03d", year, seq)
}

func FormatRegistrationNumber(year int, seq int64) string {
	return fmt.Sprintf("%04d-%04d", year, seq)
}
