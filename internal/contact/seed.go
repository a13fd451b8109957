package contact

import "fmt"

// Floor is the hardcoded national list used when no directory layer can be read.
func Floor() []Contact {
	return []Contact{
		{ID: "floor-112", Name: "Emergency Services", Phone: "112", Department: "Emergency", Level: LevelNational, Priority: 1, Available: true, IsActive: true},
		{ID: "floor-100", Name: "Police", Phone: "100", Department: "Police", Level: LevelNational, Priority: 2, Available: true, IsActive: true},
		{ID: "floor-101", Name: "Fire Services", Phone: "101", Department: "Fire", Level: LevelNational, Priority: 3, Available: true, IsActive: true},
		{ID: "floor-108", Name: "Ambulance", Phone: "108", Department: "Medical", Level: LevelNational, Priority: 4, Available: true, IsActive: true},
	}
}

type stateNumbers struct {
	state        string
	floodControl string
	disasterMgmt string
}

var stateDirectory = []stateNumbers{
	{"West Bengal", "1070", "033-2214-5555"},
	{"Maharashtra", "1077", "022-2202-0022"},
	{"Tamil Nadu", "1077", "044-2821-3261"},
	{"Karnataka", "1077", "080-2225-2317"},
	{"Kerala", "1077", "0471-2721-566"},
	{"Punjab", "1078", "0172-274-4350"},
	{"Haryana", "1078", "0172-270-8080"},
	{"Uttar Pradesh", "1078", "0522-2239-497"},
	{"Bihar", "1077", "0612-222-3333"},
	{"Assam", "1079", "0361-272-1000"},
	{"Chandigarh", "1078", "0172-270-8080"},
}

// SeedDirectory returns the contacts loaded when running without a database:
// the national numbers plus a flood control room and disaster management
// office for each state in the directory.
func SeedDirectory() []Contact {
	contacts := Floor()
	for i := range contacts {
		contacts[i].ID = fmt.Sprintf("national-%s", contacts[i].Phone)
	}
	contacts = append(contacts, Contact{
		ID:         "national-1078",
		Name:       "National Flood Control",
		Phone:      "1078",
		Department: "Disaster Management",
		Level:      LevelNational,
		Priority:   5,
		Available:  true,
		IsActive:   true,
	})

	for _, s := range stateDirectory {
		slug := stateSlug(s.state)
		contacts = append(contacts,
			Contact{
				ID:         "state-" + slug + "-flood-control",
				Name:       s.state + " Flood Control Room",
				Phone:      s.floodControl,
				Department: "Flood Control",
				Level:      LevelState,
				State:      s.state,
				Priority:   1,
				Available:  true,
				IsActive:   true,
			},
			Contact{
				ID:         "state-" + slug + "-disaster-management",
				Name:       s.state + " State Disaster Management Authority",
				Phone:      s.disasterMgmt,
				Department: "Disaster Management",
				Level:      LevelState,
				State:      s.state,
				Priority:   2,
				Available:  true,
				IsActive:   true,
			},
		)
	}
	return contacts
}

func stateSlug(state string) string {
	out := make([]rune, 0, len(state))
	for _, r := range state {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r >= 'a' && r <= 'z':
			out = append(out, r)
		case r == ' ':
			out = append(out, '-')
		}
	}
	return string(out)
}
