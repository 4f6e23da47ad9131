package transcript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// FprintTranscript prints a transcript in a readable chat-like form.
func FprintTranscript(w io.Writer, t *Transcript) {
	if t == nil {
		return
	}
	for _, b := range t.Blocks {
		switch b.Kind {
		case BlockKindSystem:
			fmt.Fprintf(w, "system: %s\n", b.Text())
		case BlockKindUser:
			fmt.Fprintf(w, "user: %s\n", b.Text())
		case BlockKindLLMText:
			fmt.Fprintf(w, "assistant: %s\n", b.Text())
		case BlockKindToolCall:
			name, _ := b.Payload[PayloadKeyName].(string)
			fmt.Fprintf(w, "tool_call: %s\n", name)
		case BlockKindToolUse:
			fmt.Fprintln(w, "tool_use")
		default:
			fmt.Fprintln(w, "other block kind")
		}
	}
}

const (
	traceSeparator  = "================================================================================"
	maxContentChars = 2000
)

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + fmt.Sprintf("\n...[truncated %d chars]", len(s)-limit)
}

func isEvidenceText(s string) bool {
	u := strings.ToUpper(s)
	return strings.Contains(u, "EVIDENCE BLOCK") ||
		strings.Contains(u, "EVIDENCE (RAW") ||
		strings.Contains(u, "FINAL SYNTHESIS CONTEXT")
}

// FprintTrace prints the full transcript with block indices, truncated
// content, and evidence/snapshot markers. This is the debug trace used when
// running with --debug.
func FprintTrace(w io.Writer, t *Transcript, title string) {
	fmt.Fprintln(w, traceSeparator)
	if title != "" {
		fmt.Fprintf(w, "TRACE - %s\n", title)
	} else {
		fmt.Fprintln(w, "TRACE")
	}
	fmt.Fprintln(w, traceSeparator)
	if t == nil {
		return
	}
	for idx, b := range t.Blocks {
		fmt.Fprintf(w, "[%02d] ROLE=%s\n", idx, strings.ToUpper(b.Role))
		switch b.Kind {
		case BlockKindToolCall:
			name, _ := b.Payload[PayloadKeyName].(string)
			args, _ := b.Payload[PayloadKeyArgs].(string)
			fmt.Fprintf(w, "tool_call: %s\n", name)
			fmt.Fprintf(w, "arguments: %s\n", truncate(strings.ReplaceAll(args, "\n", " "), 400))
		case BlockKindToolUse:
			result, _ := b.Payload[PayloadKeyResult].(string)
			var obj any
			if err := json.Unmarshal([]byte(result), &obj); err == nil {
				if pretty, err := json.MarshalIndent(obj, "", "  "); err == nil {
					result = string(pretty)
				}
			}
			fmt.Fprintln(w, truncate(result, maxContentChars))
		default:
			txt := b.Text()
			if isEvidenceText(txt) {
				fmt.Fprintln(w, ">>> evidence/context block")
			}
			fmt.Fprintln(w, truncate(txt, maxContentChars))
		}
	}
}

// DumpYAML serializes a transcript to YAML for debug artifacts.
func DumpYAML(t *Transcript) (string, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(t); err != nil {
		return "", err
	}
	if err := enc.Close(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
