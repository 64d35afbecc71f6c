package roster

import (
	"os"
	"testing"

	"lunchmanager.io/lunchmanager/internal/pkg/logger"
)

func TestMain(m *testing.M) {
	_ = logger.Init("error", "json")
	os.Exit(m.Run())
}
