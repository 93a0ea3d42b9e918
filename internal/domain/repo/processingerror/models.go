package processingerror

import "time"

// DeadLetter is the object written for every update that could not be applied.
type DeadLetter struct {
	Writer  Writer  `json:"writer"`
	Origin  Origin  `json:"origin"`
	Failure Failure `json:"failure"`
	Inputs  []Input `json:"inputs,omitempty"`
}

// Writer identifies the engine instance that wrote the dead letter.
type Writer struct {
	Host      string    `json:"host"`
	Branch    string    `json:"branch"`
	Revision  string    `json:"revision"`
	WrittenAt time.Time `json:"writtenAt"`
}

// Origin is the payload as received from the source. Payload is kept as text since it is
// usually malformed JSON.
type Origin struct {
	Source     string    `json:"source"`
	Topic      string    `json:"topic,omitempty"`
	Partition  int32     `json:"partition,omitempty"`
	Offset     int64     `json:"offset,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
	Payload    string    `json:"payload"`
}

type Failure struct {
	Category  string `json:"category"`
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

type Input struct {
	Source string `json:"source,omitempty"`
	Key    string `json:"key"`
	Value  string `json:"value"`
}
