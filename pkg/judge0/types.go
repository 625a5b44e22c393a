package judge0

import (
	"strconv"
	"strings"
)

// Status identifiers reported by Judge0.
const (
	StatusInQueue           = 1
	StatusProcessing        = 2
	StatusAccepted          = 3
	StatusWrongAnswer       = 4
	StatusTimeLimitExceeded = 5
	StatusCompilationError  = 6
	StatusRuntimeSIGSEGV    = 7
	StatusRuntimeSIGXFSZ    = 8
	StatusRuntimeSIGFPE     = 9
	StatusRuntimeSIGABRT    = 10
	StatusRuntimeNZEC       = 11
	StatusRuntimeOther      = 12
	StatusInternalError     = 13
	StatusExecFormatError   = 14
)

// Submission is a single execution request in a batch.
type Submission struct {
	SourceCode     string  `json:"source_code"`
	LanguageID     int     `json:"language_id"`
	Stdin          string  `json:"stdin,omitempty"`
	ExpectedOutput *string `json:"expected_output,omitempty"`
	CPUTimeLimit   float64 `json:"cpu_time_limit,omitempty"`
	MemoryLimit    int     `json:"memory_limit,omitempty"`
}

type batchRequest struct {
	Submissions []Submission `json:"submissions"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Status is the status object embedded in a result.
type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// Terminal reports whether the execution has finished.
func (s Status) Terminal() bool {
	return s.ID != StatusInQueue && s.ID != StatusProcessing && s.ID != 0
}

// Result is the state of one execution as returned by the batch endpoint.
type Result struct {
	Token         string  `json:"token"`
	Status        Status  `json:"status"`
	Stdout        *string `json:"stdout"`
	Stderr        *string `json:"stderr"`
	CompileOutput *string `json:"compile_output"`
	Message       *string `json:"message"`
	Time          *string `json:"time"`
	Memory        *int    `json:"memory"`
}

type batchResponse struct {
	Submissions []*Result `json:"submissions"`
}

// RuntimeMs converts the reported wall time in seconds to milliseconds.
func (r Result) RuntimeMs() int64 {
	if r.Time == nil {
		return 0
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(*r.Time), 64)
	if err != nil || seconds < 0 {
		return 0
	}
	return int64(seconds*1000 + 0.5)
}

// MemoryKB returns the reported peak memory.
func (r Result) MemoryKB() int64 {
	if r.Memory == nil {
		return 0
	}
	return int64(*r.Memory)
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// StdoutText returns stdout or an empty string.
func (r Result) StdoutText() string { return deref(r.Stdout) }

// StderrText returns stderr or an empty string.
func (r Result) StderrText() string { return deref(r.Stderr) }

// CompileOutputText returns the compiler output or an empty string.
func (r Result) CompileOutputText() string { return deref(r.CompileOutput) }

// MessageText returns the executor message or an empty string.
func (r Result) MessageText() string { return deref(r.Message) }
