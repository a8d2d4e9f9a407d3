package scenariofile

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wonny/hedgestress/internal/stress"
)

// Load reads a scenario book and returns it with the raw bytes
// KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Book, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	book, err := Parse(data)
	if err != nil {
		return nil, data, fmt.Errorf("%s: %w", path, err)
	}
	return book, data, nil
}

// Parse decodes and validates a scenario book.
func Parse(data []byte) (*Book, error) {
	var book Book
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&book); err != nil {
		return nil, err
	}

	if err := Validate(&book); err != nil {
		return nil, err
	}
	return &book, nil
}

// Validate checks the book as a whole
// 개별 검증은 stress 패키지에 위임
func Validate(book *Book) error {
	if err := stress.ValidateRiskStats(book.RiskStats()); err != nil {
		return err
	}
	if book.Targets != nil {
		if err := book.MetricsTargets(stress.MetricsTargets{}).Validate(); err != nil {
			return err
		}
	}
	if len(book.Scenarios) == 0 {
		return fmt.Errorf("%w: %w", stress.ErrInvalidScenario,
			stress.ValidationError{Field: "scenarios", Message: "at least one scenario required"})
	}

	names := make(map[string]bool, len(book.Scenarios))
	for i, s := range book.Scenarios {
		if names[s.Name] {
			return fmt.Errorf("%w: %w", stress.ErrInvalidScenario,
				stress.ValidationError{Field: fmt.Sprintf("scenarios[%d].name", i), Message: fmt.Sprintf("duplicate scenario %q", s.Name)})
		}
		names[s.Name] = true

		legs := []struct {
			name  string
			insts []InstrumentSection
		}{{"exposure", s.Exposure}, {"hedge", s.Hedge}}
		for _, leg := range legs {
			for j, inst := range leg.insts {
				if inst.MtMValue == nil {
					return fmt.Errorf("%w: %w", stress.ErrInvalidScenario,
						stress.ValidationError{Field: fmt.Sprintf("scenarios[%d].%s[%d].mtm_value", i, leg.name, j), Message: "required"})
				}
			}
		}

		if err := stress.ValidateScenario(s.toScenario()); err != nil {
			return fmt.Errorf("scenarios[%d]: %w", i, err)
		}
	}
	return nil
}

// Hash generates SHA256 hash of any value (canonical JSON)
// 주의: map 대신 struct 사용으로 해시 재현성 보장
func Hash(v any) (string, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}
