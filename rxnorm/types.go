package rxnorm

// drugsResponse is the body of GET /drugs.json
type drugsResponse struct {
	DrugGroup struct {
		Name         string `json:"name"`
		ConceptGroup []struct {
			TTY               string `json:"tty"`
			ConceptProperties []struct {
				RxCUI string `json:"rxcui"`
				Name  string `json:"name"`
				TTY   string `json:"tty"`
			} `json:"conceptProperties"`
		} `json:"conceptGroup"`
	} `json:"drugGroup"`
}

// rxcuiResponse is the body of GET /rxcui.json
type rxcuiResponse struct {
	IDGroup struct {
		Name     string   `json:"name"`
		RxNormID []string `json:"rxnormId"`
	} `json:"idGroup"`
}

// propertyResponse is the body of GET /rxcui/{id}/property.json
type propertyResponse struct {
	PropConceptGroup struct {
		PropConcept []struct {
			PropCategory string `json:"propCategory"`
			PropName     string `json:"propName"`
			PropValue    string `json:"propValue"`
		} `json:"propConcept"`
	} `json:"propConceptGroup"`
}
