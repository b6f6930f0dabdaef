package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/vecrec/internal/db"
)

// Upsert stores each profile point as a hash in a single DoMulti round-trip.
func (s *Store) Upsert(ctx context.Context, points []db.ProfilePoint) error {
	if len(points) == 0 {
		return nil
	}

	cmds := make([]rueidis.Completed, len(points))
	keys := make([]string, len(points))
	for i := range points {
		p := &points[i].Payload
		keys[i] = s.profileKey(p.TitleID, p.Slot)

		cmd := s.b().Hset().Key(keys[i]).FieldValue().
			FieldValue(db.FieldTmdbID, strconv.FormatInt(p.TmdbID, 10)).
			FieldValue(db.FieldTitleID, strconv.FormatInt(p.TitleID, 10)).
			FieldValue(db.FieldProfileType, p.ProfileType).
			FieldValue(db.FieldSlot, strconv.Itoa(p.Slot)).
			FieldValue(db.FieldVector, vectorToBytes(points[i].Vector))
		if p.Year != nil {
			cmd = cmd.FieldValue(db.FieldYear, strconv.Itoa(*p.Year))
		}
		cmds[i] = cmd.Build()
	}

	results := s.client.DoMulti(ctx, cmds...)
	for i, res := range results {
		if err := res.Error(); err != nil {
			return &db.Error{Op: db.OpHSet, Err: fmt.Errorf("key %s: %w", keys[i], err)}
		}
	}
	return nil
}

func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return rueidis.BinaryString(buf)
}

func bytesToVector(s string) ([]float32, error) {
	if len(s)%4 != 0 {
		return nil, errors.New("vector blob length is not a multiple of 4")
	}
	v := make([]float32, len(s)/4)
	b := []byte(s)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
