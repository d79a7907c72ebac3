package unit_tests

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"memdash/internal/models"
	"memdash/internal/services"
	"memdash/internal/tests/mocks"
	"memdash/internal/utils"
)

// newBackendClientService spins up a fake memory agent and returns a
// client service whose settings point at it.
func newBackendClientService(t *testing.T, handler http.Handler) services.ClientService {
	t.Helper()

	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	utils.NilError(t, err)
	port, err := strconv.Atoi(u.Port())
	utils.NilError(t, err)

	mockRepo, _ := mocks.NewMemorySettingsRepository()
	settings := services.NewSettingsService(mockRepo)
	settings.Load()

	serverURL := u.Scheme + "://" + u.Hostname()
	vectorSet := "test-memories"
	_, err = settings.UpdateSettings(models.UserSettingsPatch{
		ServerURL:     &serverURL,
		ServerPort:    &port,
		VectorSetName: &vectorSet,
	})
	utils.NilError(t, err)

	return services.NewClientService(settings, nil)
}
