package ingestion

import (
	"os"
	"testing"

	"github.com/dmelo/capitol-tracker/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init("error", false); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}
