package llm

import (
	"context"
	"iter"
)

// Producer pushes fragments through emit until the response is complete.
// emit returns an error once the consumer has gone away; the producer should
// stop and return it.
type Producer func(ctx context.Context, emit func(string) error) error

// Stream turns a push-style producer into a pull iterator. The producer runs
// in its own goroutine under a context that is cancelled as soon as the
// consumer stops iterating, and Stream waits for it to exit before returning.
// A producer error is yielded once, after any fragments already produced.
func Stream(ctx context.Context, produce Producer) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		chunks := make(chan string)
		done := make(chan error, 1)
		go func() {
			defer close(chunks)
			done <- produce(ctx, func(s string) error {
				if err := ctx.Err(); err != nil {
					return err
				}
				select {
				case chunks <- s:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			})
		}()

		for chunk := range chunks {
			if chunk == "" {
				continue
			}
			if !yield(chunk, nil) {
				cancel()
				for range chunks {
				}
				return
			}
		}
		if err := <-done; err != nil {
			yield("", err)
		}
	}
}
