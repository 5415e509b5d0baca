package model

import "time"

// Source identifies which origin table owns an alert record. IDs are
// only unique within a source, so the effective primary key is Ref.
type Source string

const (
	SourceChecklistTask    Source = "checklist_task"
	SourcePatientAlert     Source = "patient_alert"
	SourceCategorizedAlert Source = "categorized_alert"
)

func (s Source) Valid() bool {
	switch s {
	case SourceChecklistTask, SourcePatientAlert, SourceCategorizedAlert:
		return true
	}
	return false
}

// RawStatus is the persisted status after per-source vocabulary
// normalization. The original strings survive in Alert.RawText.
type RawStatus string

const (
	RawOpen      RawStatus = "open"
	RawCompleted RawStatus = "completed"
	RawHidden    RawStatus = "hidden"
)

// LiveStatus is derived at read time from (RawStatus, Deadline, now)
// and is never persisted. Wire names keep the original product's
// route vocabulary.
type LiveStatus string

const (
	StatusAlerting  LiveStatus = "alerta"
	StatusOnTime    LiveStatus = "no_prazo"
	StatusOverdue   LiveStatus = "fora_do_prazo"
	StatusCompleted LiveStatus = "concluido"
)

func ParseLiveStatus(s string) (LiveStatus, bool) {
	switch LiveStatus(s) {
	case StatusAlerting, StatusOnTime, StatusOverdue, StatusCompleted:
		return LiveStatus(s), true
	}
	return "", false
}

// Ref is the compound identity of an alert, stable across fetch
// cycles.
type Ref struct {
	Source Source `json:"source"`
	ID     string `json:"id"`
}

// Alert is the unified entity produced by the normalizer. It is
// rebuilt from scratch on every fetch cycle and carries no state of
// its own beyond the source row it mirrors.
type Alert struct {
	ID            string    `json:"id"`
	Source        Source    `json:"source"`
	PatientID     string    `json:"patient_id,omitempty"`
	PatientName   string    `json:"patient_name"`
	BedNumber     int       `json:"bed_number,omitempty"`
	CategoryID    int       `json:"category_id,omitempty"`
	CategoryName  string    `json:"category_name"`
	Description   string    `json:"description"`
	Responsible   string    `json:"responsible"`
	CreatedAt     time.Time `json:"created_at"`
	Deadline      time.Time `json:"deadline"`
	RawStatus     RawStatus `json:"raw_status"`
	RawText       string    `json:"raw_text"`
	TimeLabel     string    `json:"time_label,omitempty"`
	Justification string    `json:"justification,omitempty"`
	Triaged       bool      `json:"triaged,omitempty"`
	PatientKnown  bool      `json:"patient_known"`
}

func (a Alert) Ref() Ref {
	return Ref{Source: a.Source, ID: a.ID}
}

// HasBed reports whether the alert resolved to a real bed. Beds are
// positive integers; zero means the directory had nothing.
func (a Alert) HasBed() bool {
	return a.BedNumber > 0
}

// PartialAlert is the common shape a source reader emits before the
// normalizer resolves the patient directory and derives the deadline.
// Deadline stays zero when the source stores no deadline column.
type PartialAlert struct {
	ID            string
	Source        Source
	PatientID     string
	EmbeddedName  string
	EmbeddedBed   int
	CategoryID    int
	CategoryName  string
	Description   string
	Responsible   string
	CreatedAt     time.Time
	Deadline      time.Time
	TimeLabel     string
	RawText       string
	Justification string
	Triaged       bool
}

// Patient is one directory entry used to denormalize display fields.
type Patient struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BedNumber int    `json:"bed_number"`
}
