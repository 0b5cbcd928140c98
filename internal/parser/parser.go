// Package parser reads deck files into the subject tree. A deck file is a
// line-oriented format:
//
//	S: 民法 | #3b82f6
//	C: 総則
//	Q: [Q1] 制限行為能力者の種類を4つ挙げよ
//	M: 条文の順で覚える
//	Q: 心裡留保の原則と例外は？
//
// S: starts a subject (optional display color after "|"), C: a chapter within
// the current subject, Q: a question within the current chapter, and M: a
// comment attached to the preceding question. Q and M blocks may continue over
// following lines until the next tag line. A question id can be forced with a
// leading [id]; otherwise the id is derived from the content hash.
package parser

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/studylog/fukushu/internal/deckid"
	"github.com/studylog/fukushu/internal/domain"
)

const (
	subjectPrefix  = "S:"
	chapterPrefix  = "C:"
	questionPrefix = "Q:"
	commentPrefix  = "M:"
)

type state int

const (
	seeking state = iota
	readingQuestion
	readingComment
)

// ParseFile reads a deck file from the given path.
func ParseFile(path string) ([]domain.Subject, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads a deck from an io.Reader and builds the subject tree fragment it
// describes. Questions outside a subject/chapter pair are dropped.
func Parse(r io.Reader) ([]domain.Subject, error) {
	scanner := bufio.NewScanner(r)

	var subjects []domain.Subject
	var currentBlock []string
	var explicitID string
	currentState := seeking

	currentSubject := func() *domain.Subject {
		if len(subjects) == 0 {
			return nil
		}
		return &subjects[len(subjects)-1]
	}
	currentChapter := func() *domain.Chapter {
		s := currentSubject()
		if s == nil || len(s.Chapters) == 0 {
			return nil
		}
		return &s.Chapters[len(s.Chapters)-1]
	}

	finishBlock := func() {
		if len(currentBlock) == 0 {
			currentState = seeking
			return
		}
		content := strings.TrimSpace(strings.Join(currentBlock, "\n"))
		currentBlock = nil

		c := currentChapter()
		if c == nil || content == "" {
			currentState = seeking
			return
		}

		switch currentState {
		case readingQuestion:
			id := explicitID
			if id == "" {
				id = deckid.Derive(currentSubject().Name, c.Name, content)
			}
			c.Questions = append(c.Questions, domain.Question{
				ID:       id,
				Text:     content,
				Interval: domain.IntervalUnset,
			})
		case readingComment:
			if len(c.Questions) > 0 {
				c.Questions[len(c.Questions)-1].Comment = content
			}
		}
		explicitID = ""
		currentState = seeking
	}

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case strings.HasPrefix(line, subjectPrefix):
			finishBlock()
			name, color := splitNameColor(strings.TrimSpace(line[len(subjectPrefix):]))
			if name == "" {
				continue
			}
			subjects = append(subjects, domain.Subject{
				ID:    deckid.Derive(name, "", ""),
				Name:  name,
				Color: color,
			})
		case strings.HasPrefix(line, chapterPrefix):
			finishBlock()
			name := strings.TrimSpace(line[len(chapterPrefix):])
			s := currentSubject()
			if s == nil || name == "" {
				continue
			}
			s.Chapters = append(s.Chapters, domain.Chapter{
				ID:   deckid.Derive(s.Name, name, ""),
				Name: name,
			})
		case strings.HasPrefix(line, questionPrefix):
			finishBlock()
			currentState = readingQuestion
			content := strings.TrimPrefix(line[len(questionPrefix):], " ")
			explicitID, content = extractID(content)
			currentBlock = append(currentBlock, content)
		case strings.HasPrefix(line, commentPrefix):
			finishBlock()
			currentState = readingComment
			currentBlock = append(currentBlock, strings.TrimPrefix(line[len(commentPrefix):], " "))
		default:
			if currentState != seeking {
				currentBlock = append(currentBlock, line)
			}
		}
	}
	finishBlock()

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return subjects, nil
}

// splitNameColor splits "名前 | #rrggbb" into its parts. The color is
// optional.
func splitNameColor(s string) (string, string) {
	name, color, found := strings.Cut(s, "|")
	if !found {
		return strings.TrimSpace(s), ""
	}
	return strings.TrimSpace(name), strings.TrimSpace(color)
}

// extractID pulls a leading "[id]" marker off a question's first line.
func extractID(s string) (string, string) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "[") {
		return "", s
	}
	end := strings.Index(trimmed, "]")
	if end <= 1 {
		return "", s
	}
	id := strings.TrimSpace(trimmed[1:end])
	rest := strings.TrimSpace(trimmed[end+1:])
	if id == "" {
		return "", s
	}
	return id, rest
}
