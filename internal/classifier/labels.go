package classifier

import (
	"bufio"
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

//go:embed labels/pneumonia.txt
var pneumoniaLabels []byte

// FruitsLabels are the classes of the fruits model, in output order.
var FruitsLabels = []string{"apple", "banana", "orange"}

// ParseLabels reads one label per line. A leading numeric index followed by
// whitespace is stripped, so both "0 NORMAL" and "NORMAL" yield "NORMAL".
// Blank lines are skipped.
func ParseLabels(r io.Reader) ([]string, error) {
	var labels []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) > 1 {
			if _, err := strconv.Atoi(fields[0]); err == nil {
				line = strings.Join(fields[1:], " ")
			}
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	if len(labels) == 0 {
		return nil, errors.New("labels file is empty")
	}
	return labels, nil
}

// LoadLabels reads labels from path.
func LoadLabels(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()
	return ParseLabels(f)
}

// PneumoniaLabels loads labels from path, or the built-in NORMAL/PNEUMONIA
// pair when path is empty.
func PneumoniaLabels(path string) ([]string, error) {
	if path == "" {
		return ParseLabels(bytes.NewReader(pneumoniaLabels))
	}
	return LoadLabels(path)
}

// PneumoniaConfig is the chest X-ray model: 224x224 inputs scaled to
// [-1,1], class 0 only above 0.95.
func PneumoniaConfig(servingName string, labels []string) ModelConfig {
	return ModelConfig{
		Name:        "pneumonia",
		ServingName: servingName,
		Labels:      labels,
		Input:       InputSpec{Width: 224, Height: 224, Scale: SignedUnit},
		Decide:      Threshold(0.95),
	}
}

// FruitsConfig is the fruits model: raw 32x32 inputs, softmax over logits.
func FruitsConfig(servingName string) ModelConfig {
	return ModelConfig{
		Name:        "fruits",
		ServingName: servingName,
		Labels:      append([]string(nil), FruitsLabels...),
		Input:       InputSpec{Width: 32, Height: 32, Scale: Raw},
		Decide:      SoftmaxArgmax,
	}
}
