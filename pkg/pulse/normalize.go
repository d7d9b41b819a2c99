package pulse

import (
	"sync"

	"github.com/cognicore/commentpulse/pkg/pulse/analytics"
)

// normalizeAll normalizes every comment on a bounded worker pool. Results are
// written by index, so output order matches input order. It reports how many
// comments fell back to their raw text.
func (s *Service) normalizeAll(comments []analytics.Comment) ([]analytics.NormalizedComment, int) {
	out := make([]analytics.NormalizedComment, len(comments))

	workers := s.workers
	if workers > len(comments) {
		workers = len(comments)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				c := comments[i]
				res := s.normalizer.NormalizeResult(c.Text)
				if res.Fallback {
					s.logger.Warn().Err(res.Err).Int("index", i).Msg("normalization fell back to raw text")
				}
				out[i] = analytics.NewNormalizedComment(c, res.Text, res.Fallback)
			}
		}()
	}
	for i := range comments {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	fallbacks := 0
	for _, nc := range out {
		if nc.Fallback {
			fallbacks++
		}
	}
	return out, fallbacks
}
