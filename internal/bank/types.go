package bank

// QuestionType distinguishes single-answer from multiple-answer questions.
type QuestionType string

const (
	TypeSingle   QuestionType = "single"
	TypeMultiple QuestionType = "multiple"
)

type QuestionOption struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Question is one bank entry. Answer labels are always a subset of the option
// labels; a single-type question carries exactly one answer label. Hash is a
// content fingerprint used to skip duplicates when merging imported batches.
type Question struct {
	ID             string           `json:"id"`
	CertID         string           `json:"cert_id"`
	FileID         string           `json:"file_id"`
	Type           QuestionType     `json:"type"`
	Content        string           `json:"content"`
	Images         []string         `json:"images,omitempty"`
	Options        []QuestionOption `json:"options"`
	Answer         []string         `json:"answer"`
	KnowledgePoint string           `json:"knowledge_point"`
	Hash           string           `json:"hash"`
}

// QuestionFile groups questions by provenance. QuestionCount is denormalized
// and kept equal to the number of live questions carrying this FileID.
type QuestionFile struct {
	ID            string `json:"id"`
	CertID        string `json:"cert_id"`
	Name          string `json:"name"`
	UploadDate    int64  `json:"upload_date"`
	QuestionCount int    `json:"question_count"`
	SkippedCount  int    `json:"skipped_count,omitempty"`
	IsActive      bool   `json:"is_active"`
}

type Certificate struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Domain      string `json:"domain"`
	Level       string `json:"level"`
	Status      string `json:"status"`
	Description string `json:"description,omitempty"`
	CertNumber  string `json:"cert_number,omitempty"`
	IssueDate   string `json:"issue_date,omitempty"`
	UpdatedAt   int64  `json:"updated_at"`
}

// MergeReport summarizes a batch merge: how many questions were inserted and
// how many were skipped as hash duplicates.
type MergeReport struct {
	FileID   string `json:"file_id"`
	Added    int    `json:"added"`
	Skipped  int    `json:"skipped"`
	FileName string `json:"file_name"`
}
