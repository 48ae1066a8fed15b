package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cbg-gallery/portal/internal/domain"
)

func TestListArchive(t *testing.T) {
	svc := &stubInventoryService{archive: []domain.ArchivedArtwork{
		{ArtworkRecord: domain.ArtworkRecord{Title: "Dusk", ArtistName: "Jane Doe"}, ArchiveID: "A1"},
		{ArtworkRecord: domain.ArtworkRecord{Title: "Dawn", ArtistName: "Jane Doe"}, ArchiveID: "A2"},
	}}
	rr := httptest.NewRecorder()
	newTestRouter(svc, &testArtist).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/archive", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, testArtist.ID, svc.gotMember.ID)
	var body struct {
		Items []struct {
			ArchiveID string `json:"archiveId"`
			Title     string `json:"title"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Items, 2)
	require.Equal(t, "A2", body.Items[1].ArchiveID)
}

func TestRestoreReturnsCreated(t *testing.T) {
	svc := &stubInventoryService{restored: domain.ArtworkRecord{
		ID: "restore-A1", ProviderItemID: "ITEM77", Title: "Dusk", ArtistName: "Jane Doe", Price: price(40),
	}}
	rr := httptest.NewRecorder()
	newTestRouter(svc, &testArtist).ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/archive/A1/restore", nil))

	require.Equal(t, http.StatusCreated, rr.Code)
	require.Equal(t, "A1", svc.gotID)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, "ITEM77", body["providerItemId"])
	require.Equal(t, "40.00", body["priceDisplay"])
}
