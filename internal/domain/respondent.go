package domain

// Respondent is one simulated audience member a survey is deployed to.
// The persona text steers how the language model answers on the
// respondent's behalf.
type Respondent struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Persona string `json:"persona"`
}

// Validate checks if the Respondent has valid data.
func (r *Respondent) Validate() error {
	if r.ID == "" {
		return ErrEmptyRespondentID
	}
	return nil
}
