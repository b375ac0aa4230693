// Package converter reads problems from and writes answers to the
// whitespace-separated text protocol.
package converter

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strconv"

	"islandflow/pkg/apperror"
	"islandflow/pkg/domain"
)

// ParseProblem reads "islands bridges soldiers" followed by one
// "from to cost" triple per bridge. Tokens may be split across lines in any
// way. Anything after the last triple is ignored.
func ParseProblem(r io.Reader) (*domain.Problem, error) {
	s := &tokenScanner{sc: bufio.NewScanner(r)}
	s.sc.Split(bufio.ScanWords)

	islands, err := s.nextInt("islands")
	if err != nil {
		return nil, err
	}
	bridges, err := s.nextInt("bridges")
	if err != nil {
		return nil, err
	}
	soldiers, err := s.nextInt("soldiers")
	if err != nil {
		return nil, err
	}

	if bridges < 0 {
		return nil, apperror.NewWithField(apperror.CodeInvalidArgument,
			fmt.Sprintf("bridge count must be non-negative, got %d", bridges), "bridges")
	}

	problem := &domain.Problem{
		Islands:  islands,
		Soldiers: soldiers,
		Bridges:  make([]domain.Bridge, 0, min(bridges, 1<<16)),
	}

	for i := 0; i < bridges; i++ {
		var b domain.Bridge
		if b.From, err = s.nextInt(fmt.Sprintf("bridges[%d].from", i)); err != nil {
			return nil, err
		}
		if b.To, err = s.nextInt(fmt.Sprintf("bridges[%d].to", i)); err != nil {
			return nil, err
		}
		if b.Cost, err = s.nextInt(fmt.Sprintf("bridges[%d].cost", i)); err != nil {
			return nil, err
		}
		problem.Bridges = append(problem.Bridges, b)
	}

	if err := problem.Validate(); err != nil {
		return nil, err
	}

	return problem, nil
}

type tokenScanner struct {
	sc *bufio.Scanner
}

func (s *tokenScanner) nextInt(field string) (int, error) {
	if !s.sc.Scan() {
		if err := s.sc.Err(); err != nil {
			return 0, apperror.Wrap(err, apperror.CodeInvalidInput, "failed to read input").WithField(field)
		}
		return 0, apperror.NewWithField(apperror.CodeInvalidInput, "unexpected end of input", field)
	}

	token := s.sc.Text()
	v, err := strconv.Atoi(token)
	if err != nil {
		return 0, apperror.Wrap(err, apperror.CodeInvalidInput,
			fmt.Sprintf("expected an integer, got %q", token)).WithField(field)
	}
	return v, nil
}

// FormatAnswer writes a in the text protocol: "-1" when infeasible,
// otherwise the mean cost with six decimals and one "len b1 b2 ..." line per
// soldier.
func FormatAnswer(w io.Writer, a *domain.Answer) error {
	if a == nil {
		return apperror.New(apperror.CodeNilInput, "answer is nil")
	}

	bw := bufio.NewWriter(w)

	if !a.Feasible {
		bw.WriteString(domain.InfeasibleToken)
		bw.WriteByte('\n')
		return bw.Flush()
	}

	bw.WriteString(strconv.FormatFloat(a.MeanCost(), 'f', 6, 64))
	bw.WriteByte('\n')

	var line []byte
	for _, path := range a.Paths {
		line = strconv.AppendInt(line[:0], int64(len(path)), 10)
		for _, bridge := range path {
			line = append(line, ' ')
			line = strconv.AppendInt(line, int64(bridge), 10)
		}
		line = append(line, '\n')
		bw.Write(line)
	}

	return bw.Flush()
}

// AnswerText is FormatAnswer into a string.
func AnswerText(a *domain.Answer) (string, error) {
	var buf bytes.Buffer
	if err := FormatAnswer(&buf, a); err != nil {
		return "", err
	}
	return buf.String(), nil
}
