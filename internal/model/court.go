package model

import "fmt"

// SportType はコートの競技種別です
type SportType string

const (
	SportTennis   SportType = "tennis"
	SportPadel    SportType = "padel"
	SportFootball SportType = "football"
)

// CourtOption は競技ごとのコートの種類です
type CourtOption struct {
	ID          string
	DisplayName string
	Description string
}

var sportNames = map[SportType]string{
	SportTennis:   "Tenis",
	SportPadel:    "Pádel",
	SportFootball: "Fútbol Sala",
}

var courtOptions = map[SportType][]CourtOption{
	SportTennis: {
		{ID: "pasillo", DisplayName: "Pista Pasillo", Description: "Pista de tenis situada junto al pasillo del polideportivo"},
		{ID: "piscina", DisplayName: "Pista Piscina", Description: "Pista de tenis situada junto a la piscina"},
	},
	SportPadel: {
		{ID: "cemento", DisplayName: "Pista de Cemento", Description: "Pista de pádel con suelo de cemento"},
		{ID: "cristal", DisplayName: "Pista de Cristal", Description: "Pista de pádel con paredes de cristal"},
	},
	SportFootball: {
		{ID: "interior", DisplayName: "Pista Interior", Description: "Pista de fútbol sala dentro del edificio"},
		{ID: "exterior", DisplayName: "Pista Exterior", Description: "Pista de fútbol sala al aire libre"},
	},
}

// ParseSportType は未知の競技種別をエラーにします
func ParseSportType(s string) (SportType, error) {
	st := SportType(s)
	if _, ok := sportNames[st]; !ok {
		return "", fmt.Errorf("unknown sport type: %s", s)
	}
	return st, nil
}

// LookupCourtOption は競技種別とオプションIDからコートの種類を探します
func LookupCourtOption(sport SportType, optionID string) (CourtOption, error) {
	for _, opt := range courtOptions[sport] {
		if opt.ID == optionID {
			return opt, nil
		}
	}
	return CourtOption{}, fmt.Errorf("unknown court option %q for sport %q", optionID, sport)
}

// Court は施設のコートです。コアからは読み取り専用です
type Court struct {
	ID             string    `json:"id" db:"id" firestore:"id"`
	SportType      SportType `json:"sport_type" db:"sport_type" firestore:"courtType"`
	SpecificOption string    `json:"specific_option" db:"specific_option" firestore:"specificOption"`
	IsAvailable    bool      `json:"is_available" db:"is_available" firestore:"isAvailable"`
	ImageURL       string    `json:"image_url,omitempty" db:"image_url" firestore:"imageUrl"`
	DisplayOrder   int       `json:"display_order" db:"display_order" firestore:"displayOrder"`
}

// DisplayName は "Pádel - Pista de Cristal" のような表示名を返します
func (c Court) DisplayName() string {
	sport, ok := sportNames[c.SportType]
	if !ok {
		sport = string(c.SportType)
	}
	opt, err := LookupCourtOption(c.SportType, c.SpecificOption)
	if err != nil {
		return sport
	}
	return sport + " - " + opt.DisplayName
}
