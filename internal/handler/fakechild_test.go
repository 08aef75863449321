package handler

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// fakeChild wires a child.Handle's connection to a loop this test
// controls, acting as the far end of a spawned child language server
// without a real binary. It mirrors internal/transport's own fakeChild
// test harness, duplicated here because transport's frame reader is
// unexported.
type fakeChild struct {
	toChild    *io.PipeReader
	toChildW   *io.PipeWriter
	fromChild  *io.PipeReader
	fromChildW *io.PipeWriter
}

func newFakeChildPipes() (io.Writer, io.Reader, *fakeChild) {
	toChildR, toChildW := io.Pipe()
	fromChildR, fromChildW := io.Pipe()
	return toChildW, fromChildR, &fakeChild{toChild: toChildR, toChildW: toChildW, fromChild: fromChildR, fromChildW: fromChildW}
}

type wireFrame struct {
	ID     *int64          `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

func readWireFrame(r *bufio.Reader) (wireFrame, error) {
	length := 0
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return wireFrame{}, err
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			break
		}
		if strings.HasPrefix(line, "Content-Length:") {
			length, _ = strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(line, "Content-Length:")))
		}
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return wireFrame{}, err
	}
	var f wireFrame
	if err := json.Unmarshal(body, &f); err != nil {
		return wireFrame{}, err
	}
	return f, nil
}

func writeWireFrame(w io.Writer, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "Content-Length: %d\r\n\r\n%s", len(body), body)
	return err
}
