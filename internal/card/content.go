package card

type ContentKind string

const (
	ContentData         ContentKind = "data"
	ContentCounter      ContentKind = "counter"
	ContentLog          ContentKind = "log"
	ContentUnauthorized ContentKind = "unauthorized"
	ContentInvalid      ContentKind = "invalid"
)

// FileContent is implemented only by Data, Counter, Log, Unauthorized and
// Invalid.
type FileContent interface {
	Kind() ContentKind
	isFileContent()
}

// Data is the raw payload of a standard file.
type Data struct {
	bytes []byte
}

func NewData(b []byte) Data { return Data{bytes: cloneBytes(b)} }

func (d Data) Bytes() []byte { return cloneBytes(d.bytes) }
func (d Data) Len() int { return len(d.bytes) }

func (Data) Kind() ContentKind { return ContentData }
func (Data) isFileContent() {}

// Counter is the decoded value of a value file.
type Counter struct {
	Value int32
}

func (Counter) Kind() ContentKind { return ContentCounter }
func (Counter) isFileContent() {}

// Log holds the records of a record file in the order the card returned
// them.
type Log struct {
	records [][]byte
}

func NewLog(records [][]byte) Log {
	out := make([][]byte, len(records))
	for i, r := range records {
		out[i] = cloneBytes(r)
	}
	return Log{records: out}
}

func (l Log) Len() int { return len(l.records) }

func (l Log) Record(i int) []byte { return cloneBytes(l.records[i]) }

func (l Log) Records() [][]byte {
	out := make([][]byte, len(l.records))
	for i, r := range l.records {
		out[i] = cloneBytes(r)
	}
	return out
}

func (Log) Kind() ContentKind { return ContentLog }
func (Log) isFileContent() {}

// Unauthorized marks a file the current authentication state may not read.
type Unauthorized struct {
	Message string
}

func (Unauthorized) Kind() ContentKind { return ContentUnauthorized }
func (Unauthorized) isFileContent() {}

// Invalid marks a file whose settings or content could not be decoded.
type Invalid struct {
	Message string
}

func (Invalid) Kind() ContentKind { return ContentInvalid }
func (Invalid) isFileContent() {}
