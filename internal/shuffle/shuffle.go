// Package shuffle produces per-attempt question and option orders that are
// stable for a given exam and student.
package shuffle

import (
	"encoding/binary"
	"hash/fnv"
	"math/rand"

	"github.com/odunayomike/report-card-generator-sub003/internal/models"
)

// Seed derives the attempt seed from the exam and student ids with FNV-64a.
func Seed(examID uint, studentID string) int64 {
	h := fnv.New64a()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(examID))
	h.Write(buf[:])
	h.Write([]byte{0})
	h.Write([]byte(studentID))
	return int64(h.Sum64())
}

// Permute returns a shuffled copy of ids; the input is not modified.
func Permute(ids []uint, seed int64) []uint {
	out := make([]uint, len(ids))
	copy(out, ids)
	r := rand.New(rand.NewSource(seed))
	r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// optionSeed mixes the question id in so every question gets its own option order.
func optionSeed(seed int64, questionID uint) int64 {
	h := fnv.New64a()
	var buf [16]byte
	binary.BigEndian.PutUint64(buf[:8], uint64(seed))
	binary.BigEndian.PutUint64(buf[8:], uint64(questionID))
	h.Write(buf[:])
	return int64(h.Sum64())
}

// Plan is the order an attempt shows its paper in.
type Plan struct {
	QuestionOrder []uint
	OptionOrder   []models.OptionOrderEntry
}

// Build lays out the snapshot questions for one attempt. Questions are expected
// in snapshot position order; unshuffled parts keep that order.
func Build(questions []models.ExamQuestion, seed int64, shuffleQuestions, shuffleOptions bool) Plan {
	ids := make([]uint, len(questions))
	for i, q := range questions {
		ids[i] = q.QuestionID
	}
	if shuffleQuestions {
		ids = Permute(ids, seed)
	}

	byID := make(map[uint]*models.ExamQuestion, len(questions))
	for i := range questions {
		byID[questions[i].QuestionID] = &questions[i]
	}

	plan := Plan{
		QuestionOrder: ids,
		OptionOrder:   make([]models.OptionOrderEntry, 0, len(ids)),
	}
	for _, id := range ids {
		q := byID[id]
		optionIDs := make([]uint, len(q.Options))
		for i, o := range q.Options {
			optionIDs[i] = o.ID
		}
		if shuffleOptions {
			optionIDs = Permute(optionIDs, optionSeed(seed, id))
		}
		plan.OptionOrder = append(plan.OptionOrder, models.OptionOrderEntry{QuestionID: id, OptionIDs: optionIDs})
	}
	return plan
}
