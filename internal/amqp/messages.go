package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"ledgerdesk/internal/core"
	"ledgerdesk/internal/export"
)

// ExportJob asks a worker to serialize one export and deliver it. It
// carries the full filter so the worker needs no extra lookup before
// running the query itself.
type ExportJob struct {
	ID          string       `json:"id"`
	Shape       export.Shape `json:"shape"`
	Term        string       `json:"term,omitempty"`
	From        time.Time    `json:"from,omitempty"`
	To          time.Time    `json:"to,omitempty"`
	Type        string       `json:"type,omitempty"`
	Status      string       `json:"status,omitempty"`
	Admins      bool         `json:"admins,omitempty"`
	RequestedAt time.Time    `json:"requested_at"`
}

func NewExportJob(shape export.Shape, q core.SearchQuery) *ExportJob {
	return &ExportJob{
		ID:          uuid.NewString(),
		Shape:       shape,
		Term:        q.Term,
		From:        q.From,
		To:          q.To,
		Type:        q.Type,
		Status:      q.Status,
		RequestedAt: time.Now(),
	}
}

// Query rebuilds the search query the job was enqueued with.
func (j *ExportJob) Query() core.SearchQuery {
	return core.SearchQuery{
		Term:   j.Term,
		From:   j.From,
		To:     j.To,
		Type:   j.Type,
		Status: j.Status,
	}
}

// ActorQuery rebuilds the actor filter for an actors-shaped job.
func (j *ExportJob) ActorQuery() core.ActorQuery {
	return core.ActorQuery{Term: j.Term, AdminsOnly: j.Admins}
}

func (j *ExportJob) ToJSON() ([]byte, error) {
	return json.Marshal(j)
}

func ExportJobFromJSON(data []byte) (*ExportJob, error) {
	var j ExportJob
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, err
	}
	return &j, nil
}
