package sat

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

type header struct {
	variables uint64
	clauses   int
}

func ParseDIMACSString(dimacs string) (Instance, error) {
	return ParseDIMACS(strings.NewReader(dimacs))
}

// ParseDIMACS reads a DIMACS-CNF formula. Comment lines ("c ...") and blank lines are skipped, a clause ends at
// its 0 and may span lines. The header, when present, must agree with the parsed clauses.
func ParseDIMACS(r io.Reader) (Instance, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var (
		instance = Instance{Clauses: make([]Clause, 0)}
		declared *header
		clause   Clause
		lineNo   int
	)

	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 || fields[0] == "c" {
			continue
		}

		// Problem line
		if fields[0] == "p" {
			if declared != nil {
				return Instance{}, fmt.Errorf("%w: line %d: duplicated problem line", ErrMalformedDIMACS, lineNo)
			}
			parsed, err := parseHeader(fields)
			if err != nil {
				return Instance{}, fmt.Errorf("%w: line %d: %v", ErrMalformedDIMACS, lineNo, err)
			}
			declared = &parsed
			continue
		}

		// Clause line
		for _, field := range fields {
			literal, err := strconv.ParseInt(field, 10, 64)
			if err != nil {
				return Instance{}, fmt.Errorf("%w: line %d: invalid literal %q", ErrMalformedDIMACS, lineNo, field)
			}
			if literal == 0 {
				instance.Clauses = append(instance.Clauses, clause)
				clause = nil
				continue
			}
			clause = append(clause, literal)
		}
	}
	if err := scanner.Err(); err != nil {
		return Instance{}, fmt.Errorf("cannot read DIMACS: %w", err)
	}

	if len(clause) > 0 {
		return Instance{}, fmt.Errorf("%w: line %d: %v", ErrUnterminatedClause, lineNo, clause)
	}

	if declared != nil {
		if variables := instance.VariableCount(); variables > declared.variables {
			return Instance{}, fmt.Errorf("%w: header declares %d variables but literals reach %d", ErrHeaderMismatch, declared.variables, variables)
		}
		if len(instance.Clauses) != declared.clauses {
			return Instance{}, fmt.Errorf("%w: header declares %d clauses but %d were found", ErrHeaderMismatch, declared.clauses, len(instance.Clauses))
		}
	}

	return instance, nil
}

func parseHeader(fields []string) (header, error) {
	if len(fields) != 4 || fields[1] != "cnf" {
		return header{}, fmt.Errorf("expected 'p cnf <variables> <clauses>', got %q", strings.Join(fields, " "))
	}
	variables, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return header{}, fmt.Errorf("invalid variable count %q", fields[2])
	}
	clauses, err := strconv.Atoi(fields[3])
	if err != nil || clauses < 0 {
		return header{}, fmt.Errorf("invalid clause count %q", fields[3])
	}
	return header{variables: variables, clauses: clauses}, nil
}
