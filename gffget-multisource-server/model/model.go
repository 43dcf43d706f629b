package model

import "github.com/googlegenomics/gffget/gff"

// FeaturesResponse is the inline response of the multisource server: the
// matching records themselves rather than a ticket of URLs.
type FeaturesResponse struct {
	Format  string   `json:"format"`
	Records []Record `json:"records"`
}

type Record struct {
	Seqid      string              `json:"seqid"`
	Source     string              `json:"source"`
	Type       string              `json:"type"`
	Start      int64               `json:"start"`
	End        int64               `json:"end"`
	Score      *float64            `json:"score,omitempty"`
	Strand     string              `json:"strand"`
	Phase      *int                `json:"phase,omitempty"`
	Attributes map[string][]string `json:"attributes,omitempty"`
}

// FromGFF converts a parsed record into its JSON model.  Missing score and
// phase columns become null rather than zero values.
func FromGFF(r *gff.Record) Record {
	record := Record{
		Seqid:      r.Seqid,
		Source:     r.Source,
		Type:       r.Type,
		Start:      r.Start,
		End:        r.End,
		Strand:     r.Strand,
		Attributes: r.Attributes,
	}
	if r.HasScore {
		score := r.Score
		record.Score = &score
	}
	if r.HasPhase {
		phase := r.Phase
		record.Phase = &phase
	}
	return record
}
