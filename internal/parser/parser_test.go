package parser

import (
	"testing"
	"time"

	"vozruta/internal/core"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 10, 0, 0, 0, time.Local)
}

func TestParse(t *testing.T) {
	p := New(WithClock(fixedClock))

	cases := []struct {
		name        string
		sentence    string
		base        string
		passenger   string
		destination string
		description string
		amount      float64
		time        string
		date        string
		pkg         core.PackageType
	}{
		{
			name:        "passenger trip to destination",
			sentence:    "Maria viaje a Saenz 30000",
			passenger:   "Maria",
			destination: "Saenz",
			description: "Maria a Saenz",
			amount:      30000,
		},
		{
			name:        "symbol amount and clock time",
			sentence:    "Juan a Retiro $15.000 a las 15:30",
			passenger:   "Juan",
			destination: "Retiro",
			description: "Juan a Retiro",
			amount:      15000,
			time:        "15:30",
		},
		{
			name:        "names are title cased",
			sentence:    "maría josé a san isidro 12 mil",
			passenger:   "María José",
			destination: "San Isidro",
			description: "María José a San Isidro",
			amount:      12000,
		},
		{
			name:        "relative date against base",
			sentence:    "mañana Ana a Once 8000 pesos a las 9 de la noche",
			base:        "2024-03-10",
			passenger:   "Ana",
			destination: "Once",
			description: "Ana a Once",
			amount:      8000,
			time:        "21:00",
			date:        "2024-03-11",
		},
		{
			name:        "relative date without base uses clock",
			sentence:    "pasado mañana Luis 500",
			passenger:   "Luis",
			description: "Luis",
			amount:      500,
			date:        "2024-03-03",
		},
		{
			name:        "parcel keyword",
			sentence:    "sobre a Belgrano 5000 pesos",
			passenger:   "Sobre",
			destination: "Belgrano",
			description: "Sobre a Belgrano",
			amount:      5000,
			pkg:         core.PackageEnvelope,
		},
		{
			name:        "only destination",
			sentence:    "a once 700",
			destination: "Once",
			description: "A once",
			amount:      700,
		},
		{
			name:        "empty sentence",
			sentence:    "",
			description: core.NoDescription,
		},
		{
			name:        "only an amount",
			sentence:    "$ 2.000",
			description: core.NoDescription,
			amount:      2000,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := p.Parse(tc.sentence, tc.base)

			if core.Deref(got.Passenger) != tc.passenger {
				t.Errorf("Passenger = %q, want %q", core.Deref(got.Passenger), tc.passenger)
			}
			if core.Deref(got.Destination) != tc.destination {
				t.Errorf("Destination = %q, want %q", core.Deref(got.Destination), tc.destination)
			}
			if got.Description != tc.description {
				t.Errorf("Description = %q, want %q", got.Description, tc.description)
			}
			if got.Amount != tc.amount {
				t.Errorf("Amount = %v, want %v", got.Amount, tc.amount)
			}
			if core.Deref(got.Time) != tc.time {
				t.Errorf("Time = %q, want %q", core.Deref(got.Time), tc.time)
			}
			if core.Deref(got.Date) != tc.date {
				t.Errorf("Date = %q, want %q", core.Deref(got.Date), tc.date)
			}
			var pkg core.PackageType
			if got.PackageType != nil {
				pkg = *got.PackageType
			}
			if pkg != tc.pkg {
				t.Errorf("PackageType = %q, want %q", pkg, tc.pkg)
			}
		})
	}
}

func TestParseNeverNegative(t *testing.T) {
	p := New(WithClock(fixedClock))
	for _, s := range []string{"-300 pesos", "$-20", "menos 5", "¿?", "   "} {
		res := p.Parse(s, "")
		if res.Amount < 0 {
			t.Fatalf("%q parsed to negative amount %v", s, res.Amount)
		}
		if res.Description == "" {
			t.Fatalf("%q produced an empty description", s)
		}
	}
}
