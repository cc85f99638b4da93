// Copyright 2024 CloudWeGo Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package heap

import "io"

// padLength is the minimum growth step of a diagWriter's backing buffer.
const padLength = 4 * 1024

// diagWriter accumulates a structural report as Check walks the heap. It
// grows its backing buffer in padLength-sized doublings and is flushed once
// at the end, rather than paying for a write syscall (or even a small
// string concatenation) per visited block — a heap under test can run to
// thousands of blocks.
type diagWriter struct {
	buf []byte
}

func newDiagWriter() *diagWriter {
	return &diagWriter{buf: make([]byte, 0, padLength)}
}

func (w *diagWriter) acquire(n int) {
	if len(w.buf)+n <= cap(w.buf) {
		return
	}
	ncap := cap(w.buf) * 2
	if ncap == 0 {
		ncap = padLength
	}
	for ncap < len(w.buf)+n {
		ncap *= 2
	}
	nb := make([]byte, len(w.buf), ncap)
	copy(nb, w.buf)
	w.buf = nb
}

func (w *diagWriter) WriteString(s string) {
	w.acquire(len(s))
	w.buf = append(w.buf, s...)
}

// Flush writes the accumulated report to dst in one call.
func (w *diagWriter) Flush(dst io.Writer) error {
	if len(w.buf) == 0 {
		return nil
	}
	_, err := dst.Write(w.buf)
	return err
}
