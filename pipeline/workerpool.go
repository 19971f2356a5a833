package pipeline

import (
	"sync"

	"github.com/cherryamme/jasper/classify"
	"github.com/cherryamme/jasper/splitter"
)

// spawnWorkers starts `workers` goroutines draining in, each running the
// full splitter+classifier pass on a read and sending the result to out.
// Callers must wait on the returned WaitGroup before closing out.
func spawnWorkers(
	workers int,
	in <-chan RawRead,
	out chan<- classify.ClassifiedRead,
	layers []splitter.LayerConfig,
	policies []splitter.MatchPolicy,
	wLeft, wRight int,
	cfg classify.Config,
) *sync.WaitGroup {
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for raw := range in {
				layerResult := splitter.SplitRead(raw.Seq, layers, wLeft, wRight)
				out <- classify.Classify(raw.ID, raw.Seq, raw.Qual, layerResult, policies, cfg)
			}
		}()
	}
	return &wg
}
