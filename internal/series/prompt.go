package series

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
)

// Prompt asks for a catalog URL on out and reads answers from in until one
// starts with prefix. Invalid answers are re-prompted without limit; a URL
// that passes the prefix check but has no numeric id is returned as
// ErrSeriesID. When in is exhausted, io.ErrUnexpectedEOF is returned.
func Prompt(ctx context.Context, in io.Reader, out io.Writer, prefix string) (Context, error) {
	scanner := bufio.NewScanner(in)

	for {
		if err := ctx.Err(); err != nil {
			return Context{}, err
		}

		fmt.Fprint(out, "Enter the full Episode 1 URL of the drama series: ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return Context{}, fmt.Errorf("reading catalog URL: %w", err)
			}
			return Context{}, io.ErrUnexpectedEOF
		}

		sc, err := Resolve(scanner.Text(), prefix)
		if errors.Is(err, ErrPrefix) {
			fmt.Fprintf(out, "Invalid URL. Please enter a URL starting with %s\n", prefix)
			continue
		}
		return sc, err
	}
}
