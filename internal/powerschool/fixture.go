package powerschool

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Fixture is a yaml snapshot of SIS data, used for dry-runs against a copy
// of district data and for engine tests.
//
// Layout:
//
//	schools:
//	  - {id: 5, name: High School, school_number: 500, active: true, low_grade: 9, high_grade: 12}
//	staff:
//	  - {dcid: 4411, first_name: Jane, last_name: Doe, teachernumber: "44", homeroom: "101"}
//	students:
//	  5:
//	    - {id: 9001, local_id: "120045", name: {first_name: Sam, last_name: Lee},
//	       school_enrollment: {grade_level: 9, school_id: 5}}
//	rosters:
//	  4411:
//	    - {dcid: "9001", grade_level: "9"}
type Fixture struct {
	Schools  []SchoolRecord            `yaml:"schools"`
	Staff    []StaffRecord             `yaml:"staff"`
	Students map[int64][]StudentRecord `yaml:"students"`
	Rosters  map[int64][]RosterEntry   `yaml:"rosters"`
}

// LoadFixture reads a yaml snapshot and returns a MockClient serving it.
func LoadFixture(path string) (*MockClient, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}

	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}

	client := NewMockClient()
	client.SeedSchools(fx.Schools)
	client.SeedStaff(fx.Staff)
	for schoolID, students := range fx.Students {
		client.SeedStudents(schoolID, students)
	}
	for teacherDCID, roster := range fx.Rosters {
		client.SeedRoster(teacherDCID, roster)
	}
	return client, nil
}
