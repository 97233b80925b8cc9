package controller

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SherlinC/livecuecard/models"
	"github.com/SherlinC/livecuecard/service"
	"github.com/SherlinC/livecuecard/store"
)

func newBulkController(cardStore *store.CardStore, snap service.SnapshotServiceInterface) *BulkController {
	return NewBulkController(cardStore, service.NewExcelService(), service.NewBulkService(cardStore, snap, nil))
}

// importRequest builds a multipart POST carrying the workbook as the "file" field.
func importRequest(t *testing.T, workbook []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "批量导入.xlsx")
	require.NoError(t, err)
	_, err = fw.Write(workbook)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/bulk/import", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// testWorkbook builds an xlsx with a title column and one row per title; an
// empty title produces a row-level import error.
func testWorkbook(t *testing.T, titles []string) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	require.NoError(t, f.SetSheetName(f.GetSheetName(0), service.TemplateSheetName))
	// The unrecognized 备注 column keeps empty-title rows non-blank so GetRows
	// does not trim them away before the parser sees them.
	require.NoError(t, f.SetSheetRow(service.TemplateSheetName, "A1", &[]interface{}{"产品标题", "备注"}))
	for i, title := range titles {
		ref, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(service.TemplateSheetName, ref, &[]interface{}{title, "-"}))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestDownloadTemplate(t *testing.T) {
	c := newBulkController(store.NewCardStore(nil), &stubSnapshot{})

	rec := httptest.NewRecorder()
	c.DownloadTemplate(rec, httptest.NewRequest(http.MethodGet, "/admin/bulk/template", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), service.TemplateFilename)

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(service.TemplateSheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 2) // header plus the sample row
}

func TestImport(t *testing.T) {
	t.Run("parses rows and reports row errors", func(t *testing.T) {
		c := newBulkController(store.NewCardStore(nil), &stubSnapshot{})

		rec := httptest.NewRecorder()
		c.Import(rec, importRequest(t, testWorkbook(t, []string{"产品一", ""})))

		require.Equal(t, http.StatusOK, rec.Code)
		var body struct {
			FileName string            `json:"fileName"`
			Count    int               `json:"count"`
			Rows     []models.CardData `json:"rows"`
			Errors   []string          `json:"errors"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "批量导入.xlsx", body.FileName)
		assert.Equal(t, 2, body.Count)
		assert.Equal(t, []string{"第2行缺少 产品标题"}, body.Errors)
	})

	t.Run("missing file field is 400", func(t *testing.T) {
		c := newBulkController(store.NewCardStore(nil), &stubSnapshot{})

		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/admin/bulk/import", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		rec := httptest.NewRecorder()
		c.Import(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unparseable upload is 400", func(t *testing.T) {
		c := newBulkController(store.NewCardStore(nil), &stubSnapshot{})
		rec := httptest.NewRecorder()
		c.Import(rec, importRequest(t, []byte("not an xlsx")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBulkGenerateEndpoint(t *testing.T) {
	t.Run("streams the archive after an import", func(t *testing.T) {
		cardStore := store.NewCardStore(nil)
		c := newBulkController(cardStore, &stubSnapshot{result: &service.SnapshotResult{Success: true, PNG: bigPNG(t)}})

		rec := httptest.NewRecorder()
		c.Import(rec, importRequest(t, testWorkbook(t, []string{"产品一", "产品二"})))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		c.Generate(rec, httptest.NewRequest(http.MethodPost, "/admin/bulk/generate?template=portrait", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/zip", rec.Header().Get("Content-Type"))
		assert.Equal(t, "2", rec.Header().Get("X-Generated-Count"))

		zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
		require.NoError(t, err)
		assert.Len(t, zr.File, 2)
		assert.False(t, cardStore.IsGenerating())
	})

	t.Run("generate without an import is 400", func(t *testing.T) {
		c := newBulkController(store.NewCardStore(nil), &stubSnapshot{})
		rec := httptest.NewRecorder()
		c.Generate(rec, httptest.NewRequest(http.MethodPost, "/admin/bulk/generate", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("concurrent generate is 409", func(t *testing.T) {
		cardStore := store.NewCardStore(nil)
		c := newBulkController(cardStore, &stubSnapshot{result: &service.SnapshotResult{Success: true, PNG: bigPNG(t)}})

		rec := httptest.NewRecorder()
		c.Import(rec, importRequest(t, testWorkbook(t, []string{"产品一"})))
		require.Equal(t, http.StatusOK, rec.Code)

		cardStore.SetGenerating(true)
		rec = httptest.NewRecorder()
		c.Generate(rec, httptest.NewRequest(http.MethodPost, "/admin/bulk/generate", nil))
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("invalid template is 400", func(t *testing.T) {
		c := newBulkController(store.NewCardStore(nil), &stubSnapshot{})
		rec := httptest.NewRecorder()
		c.Generate(rec, httptest.NewRequest(http.MethodPost, "/admin/bulk/generate?template=square", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestBulkProgress(t *testing.T) {
	cardStore := store.NewCardStore(nil)
	cardStore.SetGenerating(true)
	cardStore.SetProgress(67)
	c := newBulkController(cardStore, &stubSnapshot{})

	rec := httptest.NewRecorder()
	c.Progress(rec, httptest.NewRequest(http.MethodGet, "/admin/bulk/progress", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, true, body["generating"])
	assert.Equal(t, 67.0, body["progress"])
}
