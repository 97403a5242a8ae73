package gamefeed

type eventsEnvelope struct {
	Events []eventPayload `json:"events"`
}

type eventPayload struct {
	ID           string               `json:"id"`
	Date         string               `json:"date"`
	Name         string               `json:"name"`
	Competitions []competitionPayload `json:"competitions"`
}

type competitionPayload struct {
	Competitors []competitorPayload `json:"competitors"`
	Status      statusPayload       `json:"status"`
	Situation   situationPayload    `json:"situation"`
}

type competitorPayload struct {
	HomeAway string      `json:"homeAway"`
	Score    string      `json:"score"`
	Team     teamPayload `json:"team"`
}

type teamPayload struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
}

type statusPayload struct {
	DisplayClock string            `json:"displayClock"`
	Type         statusTypePayload `json:"type"`
}

type statusTypePayload struct {
	Description string `json:"description"`
	ShortDetail string `json:"shortDetail"`
}

type situationPayload struct {
	LastPlay lastPlayPayload `json:"lastPlay"`
}

type lastPlayPayload struct {
	Text string `json:"text"`
}

type statsEnvelope struct {
	Splits splitsPayload `json:"splits"`
}

type splitsPayload struct {
	Categories []statCategoryPayload `json:"categories"`
}

type statCategoryPayload struct {
	Name  string        `json:"name"`
	Stats []statPayload `json:"stats"`
}

type statPayload struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}
