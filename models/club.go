package models

import (
	"time"

	"github.com/google/uuid"
)

type Club struct {
	ID        string    `bson:"_id" json:"_id"`
	Category  string    `bson:"category" json:"category"`
	ClubName  string    `bson:"clubName" json:"clubName"`
	IsActive  bool      `bson:"isActive" json:"isActive"` // true = 還沒被認領
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

type ClubOption struct {
	ID       string `json:"_id"`
	ClubName string `json:"clubName"`
}

// GroupByCategory keeps the input order inside each category.
func GroupByCategory(clubs []Club) map[string][]ClubOption {
	out := make(map[string][]ClubOption)
	for _, c := range clubs {
		out[c.Category] = append(out[c.Category], ClubOption{ID: c.ID, ClubName: c.ClubName})
	}
	return out
}

var clubCatalog = []struct{ category, name string }{
	{"Social Clubs", "National Service Scheme (NSS)"},
	{"Social Clubs", "Leo Satva"},
	{"Social Clubs", "BMSCE ISRC"},
	{"Social Clubs", "Rotaract Club of BMSCE"},
	{"Social Clubs", "Mountaineering Club of BMSCE (BMSCEMC)"},
	{"Social Clubs", "Yoga Club"},

	{"Cultural Clubs", "The Groovehouse – Western Music"},
	{"Cultural Clubs", "Ninaad – Eastern Music"},
	{"Cultural Clubs", "Paramvah – Eastern Dance Team"},
	{"Cultural Clubs", "DanzAddix – Western Dance Team"},
	{"Cultural Clubs", "Chiranthana Kannada Sangha"},
	{"Cultural Clubs", "Samskruthi Sambhrama"},
	{"Cultural Clubs", "Pravrutthi – Theatre Team"},
	{"Cultural Clubs", "PANACHE – Fashion Team"},
	{"Cultural Clubs", "Fine Arts Club"},
	{"Cultural Clubs", "Falcons of BMSCE – Multimedia Team"},

	{"Quiz Club", "Qcaine – BMSCE Quiz Club"},
	{"Gaming Club", "RESPAWN – Gaming Club"},

	{"Professional Bodies", "BMSCE IEEE Student Branch SB"},
	{"Professional Bodies", "BMSCE ACM Student Chapter"},

	{"Coding Clubs", "Google Developer Groups on Campus – Web Development"},
	{"Coding Clubs", "Teamcodelocked – Technical Club"},
	{"Coding Clubs", "Augment AI – Artificial Intelligence Club"},

	{"Technical Clubs", "Singularity – The Astronomical Society of BMSCE"},
	{"Technical Clubs", "Upagraha – Design, Build and Launch a Student Satellite"},
	{"Technical Clubs", "Bullz Racing – Formula Student Team"},
	{"Technical Clubs", "Pentagram – Mathematical Society"},
	{"Technical Clubs", "Aero BMSCE – Aeromodelling Club"},
	{"Technical Clubs", "Rocketry – Rocket Club"},
	{"Technical Clubs", "Robotics Club"},
	{"Technical Clubs", "CorTechs – The Innovation & Technology Hub"},

	{"Business Related Clubs", "BIG Foundation"},
	{"Business Related Clubs", "BMS MUNSoc – Model United Nations Society"},
	{"Business Related Clubs", "Business Insights"},
	{"Business Related Clubs", "IIC – Building Innovation and Entrepreneurship Ecosystem"},
	{"Business Related Clubs", "Inksanity – Literary and Debating Society of BMSCE"},
}

// DefaultClubs returns the built-in catalog, every club unclaimed.
func DefaultClubs() []Club {
	now := time.Now().UTC()
	out := make([]Club, 0, len(clubCatalog))
	for _, c := range clubCatalog {
		out = append(out, Club{
			ID:        uuid.NewString(),
			Category:  c.category,
			ClubName:  c.name,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return out
}
