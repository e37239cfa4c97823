package quiz

import (
	"sort"
	"strconv"
	"time"
)

// Completion records how a session ended.
type Completion string

const (
	CompletionManual  Completion = "manual"
	CompletionTimeout Completion = "timeout"
)

type QuestionResult struct {
	Index      int       `json:"index"`
	QuestionID uint      `json:"questionId"`
	Selected   OptionTag `json:"selected,omitempty"`
	Correct    OptionTag `json:"correct"`
	IsCorrect  bool      `json:"isCorrect"`
}

// Result is the payload handed to submission once a session finishes.
type Result struct {
	Score        int               `json:"score"`
	Total        int               `json:"total"`
	Breakdown    []QuestionResult  `json:"breakdown"`
	TimeTaken    time.Duration     `json:"-"`
	TimeSeconds  int               `json:"timeTaken"`
	Mode         Mode              `json:"mode"`
	Completion   Completion        `json:"completion"`
	PracticeType string            `json:"practiceType,omitempty"`
	QuestionIDs  []uint            `json:"questionIds"`
	Answers      map[string]string `json:"userAnswers"`
}

// Score 逐题比对，未作答计为错误，不返回错误
func Score(questions []Question, answers map[int]OptionTag) (int, []QuestionResult) {
	score := 0
	breakdown := make([]QuestionResult, len(questions))
	for i, q := range questions {
		selected, answered := answers[i]
		correct := answered && selected == q.Correct
		if correct {
			score++
		}
		breakdown[i] = QuestionResult{
			Index:      i,
			QuestionID: q.ID,
			Selected:   selected,
			Correct:    q.Correct,
			IsCorrect:  correct,
		}
	}
	return score, breakdown
}

// AnswersFromWire converts a {"0":"A"} map into index-keyed tags. Keys that
// are not indices into questions, and values that are not a-d, are dropped.
func AnswersFromWire(raw map[string]string, questionCount int) map[int]OptionTag {
	out := make(map[int]OptionTag, len(raw))
	for k, v := range raw {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 || idx >= questionCount {
			continue
		}
		if tag, ok := ParseOptionTag(v); ok {
			out[idx] = tag
		}
	}
	return out
}

// AnswersToWire is the inverse of AnswersFromWire.
func AnswersToWire(answers map[int]OptionTag) map[string]string {
	out := make(map[string]string, len(answers))
	for idx, tag := range answers {
		out[strconv.Itoa(idx)] = string(tag)
	}
	return out
}

// Rescore rebuilds a Result from stored question ids and wire answers.
// Questions are looked up by id so the stored order is authoritative.
func Rescore(questionIDs []uint, answers map[string]string, bank map[uint]Question) Result {
	questions := make([]Question, 0, len(questionIDs))
	for _, id := range questionIDs {
		q, ok := bank[id]
		if !ok {
			// 题目已下线：保留位置，按未答对计分
			q = Question{ID: id}
		}
		questions = append(questions, q)
	}
	score, breakdown := Score(questions, AnswersFromWire(answers, len(questions)))
	return Result{
		Score:       score,
		Total:       len(questions),
		Breakdown:   breakdown,
		QuestionIDs: append([]uint(nil), questionIDs...),
		Answers:     answers,
	}
}

func sortedIndices(answers map[int]OptionTag) []int {
	keys := make([]int, 0, len(answers))
	for k := range answers {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}
