package ingest

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cognicore/postlens/internal/logger"
	"github.com/cognicore/postlens/pkg/postlens/internalerr"
)

// Input formats understood by the reader.
const (
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
)

// maxLineBytes bounds a single JSONL record. Longer records are rejected.
const maxLineBytes = 4 << 20

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Rejection records an input record that could not become a Post.
type Rejection struct {
	Line int
	ID   string
	Err  error
}

// Batch is the result of reading one input corpus.
type Batch struct {
	Posts      []Post
	Rejections []Rejection
}

// Reader turns an export into Posts. Malformed records are rejected and
// logged; they never abort the batch.
type Reader struct {
	log logger.Logger
}

// NewReader creates a reader that reports rejections to log.
func NewReader(log logger.Logger) *Reader {
	if log == nil {
		log = logger.NewNop()
	}
	return &Reader{log: log}
}

// DetectFormat picks a format from the file extension.
func DetectFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson", ".json":
		return FormatJSONL, nil
	case ".csv":
		return FormatCSV, nil
	default:
		return "", fmt.Errorf("cannot infer input format from %q: %w", path, internalerr.ErrInvalidInput)
	}
}

// LoadFile reads path in the given format; an empty format is inferred from
// the extension. A file without a single valid post is an error.
func (r *Reader) LoadFile(path, format string) (Batch, error) {
	if format == "" {
		var err error
		if format, err = DetectFormat(path); err != nil {
			return Batch{}, err
		}
	}

	f, err := os.Open(path)
	if err != nil {
		return Batch{}, fmt.Errorf("open input %s: %w", path, err)
	}
	defer f.Close()

	var batch Batch
	switch format {
	case FormatJSONL:
		batch, err = r.ReadJSONL(f)
	case FormatCSV:
		batch, err = r.ReadCSV(f)
	default:
		return Batch{}, fmt.Errorf("unknown input format %q: %w", format, internalerr.ErrInvalidInput)
	}
	if err != nil {
		return Batch{}, fmt.Errorf("read input %s: %w", path, err)
	}
	if len(batch.Posts) == 0 {
		return batch, fmt.Errorf("no valid posts found in %s: %w", path, internalerr.ErrInvalidInput)
	}
	return batch, nil
}

// jsonRecord mirrors one JSONL line. Counts are pointers so a missing field
// can be told apart from zero.
type jsonRecord struct {
	ID          flexString `json:"id"`
	Timestamp   string     `json:"timestamp"`
	Text        string     `json:"text"`
	Hashtags    []string   `json:"hashtags"`
	Reactions   *int       `json:"reactions"`
	Comments    *int       `json:"comments"`
	Shares      *int       `json:"shares"`
	Impressions *float64   `json:"impressions"`
}

// flexString accepts both "123" and 123 for ids.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number")
	}
	*f = flexString(n.String())
	return nil
}

// ReadJSONL reads one JSON object per line; blank lines are skipped.
func (r *Reader) ReadJSONL(in io.Reader) (Batch, error) {
	var batch Batch
	br := bufio.NewReaderSize(in, 64*1024)

	var buf []byte
	line := 0
	for {
		raw, oversized, err := readLine(br, buf)
		if err != nil && !errors.Is(err, io.EOF) {
			return batch, fmt.Errorf("read jsonl at line %d: %w", line+1, err)
		}
		eof := err != nil
		if eof && len(raw) == 0 && !oversized {
			break
		}
		line++
		buf = raw

		if oversized {
			r.reject(&batch, Rejection{
				Line: line,
				Err:  fmt.Errorf("record longer than %d bytes: %w", maxLineBytes, internalerr.ErrInvalidInput),
			})
		} else if rec := bytes.TrimSpace(raw); len(rec) > 0 {
			r.jsonRecord(&batch, line, rec)
		}
		if eof {
			break
		}
	}
	return batch, nil
}

// readLine reads one line into buf. A line longer than maxLineBytes is
// consumed to its end but not kept, and reported as oversized.
func readLine(br *bufio.Reader, buf []byte) ([]byte, bool, error) {
	buf = buf[:0]
	oversized := false
	for {
		chunk, err := br.ReadSlice('\n')
		if !oversized {
			if len(buf)+len(chunk) > maxLineBytes {
				oversized = true
				buf = buf[:0]
			} else {
				buf = append(buf, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return buf, oversized, err
	}
}

func (r *Reader) jsonRecord(batch *Batch, line int, raw []byte) {
	var rec jsonRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		r.reject(batch, Rejection{Line: line, Err: fmt.Errorf("malformed json: %w", err)})
		return
	}

	post, err := buildPost(fields{
		id:          string(rec.ID),
		timestamp:   rec.Timestamp,
		text:        rec.Text,
		hashtags:    rec.Hashtags,
		reactions:   rec.Reactions,
		comments:    rec.Comments,
		shares:      rec.Shares,
		impressions: rec.Impressions,
	})
	if err != nil {
		r.reject(batch, Rejection{Line: line, ID: string(rec.ID), Err: err})
		return
	}
	r.accept(batch, post)
}

// csvAliases maps accepted header names onto canonical field names.
var csvAliases = map[string]string{
	"id":          "id",
	"post_id":     "id",
	"urn":         "id",
	"timestamp":   "timestamp",
	"date":        "timestamp",
	"posted_at":   "timestamp",
	"text":        "text",
	"content":     "text",
	"body":        "text",
	"commentary":  "text",
	"hashtags":    "hashtags",
	"tags":        "hashtags",
	"reactions":   "reactions",
	"likes":       "reactions",
	"comments":    "comments",
	"shares":      "shares",
	"reposts":     "shares",
	"impressions": "impressions",
	"views":       "impressions",
}

// ReadCSV reads a CSV export with a header row.
func (r *Reader) ReadCSV(in io.Reader) (Batch, error) {
	var batch Batch
	cr := csv.NewReader(in)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return batch, nil
	}
	if err != nil {
		return batch, fmt.Errorf("read csv header: %w", err)
	}

	cols := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if canonical, ok := csvAliases[key]; ok {
			if _, dup := cols[canonical]; !dup {
				cols[canonical] = i
			}
		}
	}
	for _, required := range []string{"id", "timestamp", "text"} {
		if _, ok := cols[required]; !ok {
			return batch, fmt.Errorf("csv header missing %q column: %w", required, internalerr.ErrInvalidInput)
		}
	}

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				r.reject(&batch, Rejection{Line: parseErr.StartLine, Err: fmt.Errorf("malformed csv: %w", err)})
				continue
			}
			return batch, fmt.Errorf("read csv: %w", err)
		}
		line, _ := cr.FieldPos(0)

		get := func(name string) (string, bool) {
			i, ok := cols[name]
			if !ok || i >= len(row) {
				return "", false
			}
			return strings.TrimSpace(row[i]), true
		}

		f := fields{}
		f.id, _ = get("id")
		f.timestamp, _ = get("timestamp")
		if i, ok := cols["text"]; ok && i < len(row) {
			f.text = row[i]
		}
		if tags, ok := get("hashtags"); ok {
			f.hashtags = splitTags(tags)
		}

		var convErr error
		f.reactions, convErr = optionalInt(get("reactions"))
		if convErr == nil {
			f.comments, convErr = optionalInt(get("comments"))
		}
		if convErr == nil {
			f.shares, convErr = optionalInt(get("shares"))
		}
		if convErr == nil {
			f.impressions, convErr = optionalFloat(get("impressions"))
		}
		if convErr != nil {
			r.reject(&batch, Rejection{Line: line, ID: f.id, Err: fmt.Errorf("%w: %w", internalerr.ErrInvalidInput, convErr)})
			continue
		}

		post, err := buildPost(f)
		if err != nil {
			r.reject(&batch, Rejection{Line: line, ID: f.id, Err: err})
			continue
		}
		r.accept(&batch, post)
	}
	return batch, nil
}

func (r *Reader) accept(batch *Batch, p Post) {
	p.Ordinal = len(batch.Posts)
	batch.Posts = append(batch.Posts, p)
}

func (r *Reader) reject(batch *Batch, rej Rejection) {
	batch.Rejections = append(batch.Rejections, rej)
	r.log.Warn("post record rejected",
		logger.Int("line", rej.Line),
		logger.String("post_id", rej.ID),
		logger.Error(rej.Err))
}

// fields is the format-independent view of one input record.
type fields struct {
	id          string
	timestamp   string
	text        string
	hashtags    []string
	reactions   *int
	comments    *int
	shares      *int
	impressions *float64
}

func buildPost(f fields) (Post, error) {
	var missing []string
	if f.reactions == nil {
		missing = append(missing, "reactions")
	}
	if f.comments == nil {
		missing = append(missing, "comments")
	}
	if f.shares == nil {
		missing = append(missing, "shares")
	}
	if len(missing) > 0 {
		return Post{}, fmt.Errorf("%w: missing %s", internalerr.ErrInvalidInput, strings.Join(missing, ", "))
	}

	var postedAt time.Time
	if strings.TrimSpace(f.timestamp) != "" {
		var err error
		postedAt, err = ParseTimestamp(f.timestamp)
		if err != nil {
			return Post{}, err
		}
	}

	text := PlainText(f.text)
	tags := f.hashtags
	if len(tags) == 0 {
		tags = InlineHashtags(text)
	}

	p := Post{
		ID:          strings.TrimSpace(f.id),
		PostedAt:    postedAt,
		Text:        text,
		Hashtags:    NormalizeHashtags(tags),
		Reactions:   *f.reactions,
		Comments:    *f.comments,
		Shares:      *f.shares,
		Impressions: f.impressions,
	}
	if err := p.Validate(); err != nil {
		return Post{}, err
	}
	return p, nil
}

// ParseTimestamp accepts RFC3339 timestamps and plain dates; the result is UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q: %w", s, internalerr.ErrInvalidInput)
}

func splitTags(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == ';' || r == '|' || r == '\t'
	})
}

func optionalInt(s string, present bool) (*int, error) {
	if !present || s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid count %q", s)
	}
	return &n, nil
}

func optionalFloat(s string, present bool) (*float64, error) {
	if !present || s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid impressions %q", s)
	}
	return &v, nil
}
