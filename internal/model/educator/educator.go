// Package educator defines the counterpart personas presented by each
// product module and the store the handlers read them from.
package educator

import "github.com/deleyapp/lawcopilot/internal/model/module"

// Educator captures the counterpart persona attributes exposed to clients.
type Educator struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Title     string      `json:"title"`
	Avatar    string      `json:"avatar"`
	Module    module.Kind `json:"module"`
	Greeting  string      `json:"greeting"`
	Specialty string      `json:"specialty,omitempty"`
}

// Seed provides the default educator roster for the three product modules.
func Seed() []Educator {
	return []Educator{
		{
			ID:        "lucia-ramos",
			Name:      "Profesora Lucía Ramos",
			Title:     "Educadora constitucional",
			Avatar:    "avatars/lucia-ramos.png",
			Module:    module.KindTeaching,
			Greeting:  "Hola, soy la profesora Lucía. ¿Qué tema de la Constitución quieres repasar hoy?",
			Specialty: "Derecho constitucional y derechos fundamentales",
		},
		{
			ID:        "ernesto-valdivia",
			Name:      "Dr. Ernesto Valdivia",
			Title:     "Abogado litigante",
			Avatar:    "avatars/ernesto-valdivia.png",
			Module:    module.KindSimulation,
			Greeting:  "Señoría, la defensa está lista. Presente su argumento y lo debatiremos.",
			Specialty: "Litigación oral y debate jurídico",
		},
		{
			ID:        "carmen-ugarte",
			Name:      "Dra. Carmen Ugarte",
			Title:     "Asesora legal",
			Avatar:    "avatars/carmen-ugarte.png",
			Module:    module.KindAdvisor,
			Greeting:  "Cuénteme su caso con confianza. Revisaremos juntos qué dice la ley.",
			Specialty: "Orientación legal ciudadana",
		},
	}
}
