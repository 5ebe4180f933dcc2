package httpserver

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"fast_mcm/mcm"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter(t *testing.T) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)

	router := gin.New()
	handlers := NewEvalHandlers(mcm.NewSurrogateModel(), t.TempDir(), t.TempDir())
	handlers.MapRoutes(router)

	return router
}

func validBody() map[string]interface{} {
	return map[string]interface{}{
		"altitude":  []float64{200, 400},
		"dayOfYear": []float64{80, 81},
		"localTime": []float64{6, 18},
		"latitude":  []float64{30, -30},
		"longitude": []float64{90, 270},
		"f107":      []float64{150, 150},
		"f107m":     []float64{148, 148},
		"kp1":       []float64{3, 4},
		"kp2":       []float64{2, 2},
	}
}

func postEvaluate(t *testing.T, router *gin.Engine, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/evaluate", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, req)

	return recorder
}

func TestHandleEvaluateBatch_Ok(t *testing.T) {
	router := testRouter(t)

	recorder := postEvaluate(t, router, validBody())
	require.Equal(t, http.StatusOK, recorder.Code)

	var respBody evaluateBatchResponse
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &respBody))

	assert.Equal(t, 2, respBody.Length)
	assert.Equal(t, []float64{200, 400}, respBody.Altitude)
	require.Len(t, respBody.Dens, 2)
	assert.Greater(t, respBody.Dens[0], 0.0)
	assert.Greater(t, respBody.Temp[1], 0.0)

	// Winds were not requested but the arrays are still present
	require.Len(t, respBody.XWind, 2)
	assert.Zero(t, respBody.XWind[0])
}

func TestHandleEvaluateBatch_MissingField(t *testing.T) {
	router := testRouter(t)

	body := validBody()
	delete(body, "kp2")

	recorder := postEvaluate(t, router, body)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHandleEvaluateBatch_MismatchedArrayLengths(t *testing.T) {
	router := testRouter(t)

	body := validBody()
	body["latitude"] = []float64{30}

	recorder := postEvaluate(t, router, body)
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
}

func TestHandleEvaluateBatch_OutOfDomainPoint(t *testing.T) {
	router := testRouter(t)

	body := validBody()
	body["altitude"] = []float64{200, 9999}

	recorder := postEvaluate(t, router, body)
	require.Equal(t, http.StatusUnprocessableEntity, recorder.Code)

	var errBody map[string]interface{}
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &errBody))
	assert.Equal(t, float64(1), errBody["index"])
}

func TestHandleEvaluateBatch_BadDatasetDirOverride(t *testing.T) {
	router := testRouter(t)

	body := validBody()
	body["dtmDataDir"] = "/nonexistent/dtm"

	recorder := postEvaluate(t, router, body)
	assert.Equal(t, http.StatusInternalServerError, recorder.Code)
}
