package progress

import (
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// NewBar returns an OnChange callback that renders a terminal progress bar
// on stderr. The bar's max grows as tasks are submitted, so it behaves
// sensibly for generator-backed task sequences whose length is not known up
// front.
func NewBar(description string) func(Snapshot) {
	bar := progressbar.NewOptions64(0,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionSetWriter(os.Stderr),          // Use stderr for better terminal support
		progressbar.OptionThrottle(65*time.Millisecond), // Reduce update frequency
		progressbar.OptionClearOnFinish(),               // Clear progress bar when done
	)

	return func(s Snapshot) {
		bar.ChangeMax64(int64(s.Total))
		_ = bar.Set64(int64(s.Completed + s.Failed))
		if s.Done() {
			_ = bar.Finish()
		}
	}
}
