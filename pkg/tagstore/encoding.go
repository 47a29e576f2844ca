package tagstore

import (
	"bytes"
	"time"

	"github.com/spkdev/spk/pkg/spkio"
)

// encode serializes t as a length-prefixed record: org, name, target,
// user, time (RFC3339), parent.
func encode(t Tag) []byte {
	var body bytes.Buffer
	w := spkio.NewWriter(&body)
	w.WriteString(t.Org)
	w.WriteString(t.Name)
	w.WriteDigest(t.Target)
	w.WriteString(t.User)
	w.WriteString(t.Time.UTC().Format(time.RFC3339Nano))
	w.WriteDigest(t.Parent)

	var framed bytes.Buffer
	fw := spkio.NewWriter(&framed)
	fw.WriteUint64(uint64(body.Len()))
	framed.Write(body.Bytes())
	return framed.Bytes()
}

// decodeOne reads a single length-prefixed Tag record from r.
func decodeOne(r *spkio.Reader) (Tag, error) {
	n := r.ReadUint64("tag.len")
	raw := r.ReadBytes("tag.body", n)
	if r.Err() != nil {
		return Tag{}, r.Err()
	}

	body := spkio.NewReader(bytes.NewReader(raw))
	t := Tag{
		Org:    body.ReadString("tag.org"),
		Name:   body.ReadString("tag.name"),
		Target: body.ReadDigest("tag.target"),
		User:   body.ReadString("tag.user"),
	}
	timeStr := body.ReadString("tag.time")
	t.Parent = body.ReadDigest("tag.parent")
	if body.Err() != nil {
		return Tag{}, body.Err()
	}

	parsed, err := time.Parse(time.RFC3339Nano, timeStr)
	if err != nil {
		return Tag{}, err
	}
	t.Time = parsed

	return t, nil
}

// decodeAll reads every record in a stream, oldest first.
func decodeAll(raw []byte) ([]Tag, error) {
	br := bytes.NewReader(raw)
	var tags []Tag
	for br.Len() > 0 {
		r := spkio.NewReader(br)
		t, err := decodeOne(r)
		if err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, nil
}
