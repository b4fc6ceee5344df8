package web

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/LeonardoBeccarini/harvestify/internal/model/messages"
	"github.com/LeonardoBeccarini/harvestify/internal/services/crop"
	"github.com/LeonardoBeccarini/harvestify/internal/services/disease"
)

const maxArticleBytes = 1 << 20

type cropResult struct {
	Label        string
	City         string
	TemperatureC float64
	HumidityPct  int
}

func (a *App) home(w http.ResponseWriter, _ *http.Request) {
	a.render.Render(w, http.StatusOK, "index", page{Title: "Home"})
}

func (a *App) cropForm(w http.ResponseWriter, _ *http.Request) {
	a.render.Render(w, http.StatusOK, "crop", page{Title: "Crop Recommendation"})
}

func (a *App) fertilizerForm(w http.ResponseWriter, _ *http.Request) {
	a.render.Render(w, http.StatusOK, "fertilizer", page{Title: "Fertilizer Suggestion", Data: a.crops()})
}

func (a *App) diseaseForm(w http.ResponseWriter, _ *http.Request) {
	a.render.Render(w, http.StatusOK, "disease", page{Title: "Disease Detection"})
}

func (a *App) tryAgain(w http.ResponseWriter, status int) {
	a.render.Render(w, status, "try_again", page{Title: "Try Again"})
}

func (a *App) cropPredict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	form, err := ParseCropForm(r)
	if err != nil {
		a.record(messages.KindCrop, messages.OutcomeRejected, "", err.Error())
		respondText(w, r, err)
		return
	}

	reading, ok, err := a.Weather.Lookup(r.Context(), form.City)
	if err != nil {
		log.Printf("web: weather for %q failed: %v", form.City, err)
		a.record(messages.KindCrop, messages.OutcomeUnavailable, "", "weather")
		a.tryAgain(w, http.StatusOK)
		return
	}
	if !ok {
		a.record(messages.KindCrop, messages.OutcomeUnavailable, "", "city not found")
		a.tryAgain(w, http.StatusOK)
		return
	}

	label, err := a.Crop.Predict(r.Context(), crop.FeaturesFrom(form.Sample(), reading))
	if err != nil {
		log.Printf("web: crop prediction failed: %v", err)
		a.record(messages.KindCrop, messages.OutcomeFailed, "", "model")
		a.tryAgain(w, http.StatusServiceUnavailable)
		return
	}

	a.record(messages.KindCrop, messages.OutcomeOK, label, form.City)
	a.render.Render(w, http.StatusOK, "crop-result", page{
		Title: "Crop Recommendation",
		Data: cropResult{
			Label:        label,
			City:         form.City,
			TemperatureC: reading.TemperatureC,
			HumidityPct:  reading.HumidityPct,
		},
	})
}

func (a *App) fertilizerPredict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	form, err := ParseFertilizerForm(r)
	if err != nil {
		a.record(messages.KindFertilizer, messages.OutcomeRejected, "", err.Error())
		respondText(w, r, err)
		return
	}

	rec, err := a.Advisor.Recommend(r.Context(), form.Crop, form.Nitrogen, form.Phosphorous, form.Potassium)
	if err != nil {
		outcome := messages.OutcomeRejected
		if classify(err).StatusCode >= 500 {
			outcome = messages.OutcomeFailed
		}
		a.record(messages.KindFertilizer, outcome, "", err.Error())
		respondText(w, r, err)
		return
	}

	a.record(messages.KindFertilizer, messages.OutcomeOK, string(rec.Advice.Key), rec.Crop)
	a.render.Render(w, http.StatusOK, "fertilizer-result", page{Title: "Fertilizer Suggestion", Data: rec})
}

func (a *App) diseasePredict(w http.ResponseWriter, r *http.Request) {
	formErr := func(status int, msg string) {
		a.render.Render(w, status, "disease", page{Title: "Disease Detection", Error: msg})
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			a.record(messages.KindDisease, messages.OutcomeRejected, "", "too large")
			formErr(http.StatusRequestEntityTooLarge, "The image is too large. Please upload a smaller photo.")
			return
		}
		a.record(messages.KindDisease, messages.OutcomeRejected, "", string(disease.ReasonEmpty))
		formErr(http.StatusBadRequest, "Please choose an image file to upload.")
		return
	}
	defer file.Close()

	img, err := io.ReadAll(file)
	if err != nil {
		a.record(messages.KindDisease, messages.OutcomeRejected, "", "read")
		formErr(http.StatusBadRequest, "The upload could not be read. Please try again.")
		return
	}

	out := a.Disease.Diagnose(r.Context(), img)
	if f := out.Failure; f != nil {
		status := http.StatusServiceUnavailable
		outcome := messages.OutcomeFailed
		if f.ClientCaused() {
			status, outcome = http.StatusBadRequest, messages.OutcomeRejected
		}
		log.Printf("web: %v", f)
		a.record(messages.KindDisease, outcome, "", string(f.Reason))
		formErr(status, f.Message())
		return
	}

	a.record(messages.KindDisease, messages.OutcomeOK, out.Prediction.Label, "")
	a.render.Render(w, http.StatusOK, "disease-result", page{Title: "Disease Detection", Data: out.Prediction})
}

func (a *App) community(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		list, err := a.Community.List(r.Context())
		if err != nil {
			log.Printf("web: list articles: %v", err)
			RespondWithError(w, classify(err))
			return
		}
		RespondWithJSON(w, http.StatusOK, list)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxArticleBytes))
	if err != nil {
		RespondWithError(w, classify(err))
		return
	}
	article, err := a.Community.Add(r.Context(), body)
	if err != nil {
		apiErr := classify(err)
		if apiErr.StatusCode >= 500 {
			log.Printf("web: add article: %v", err)
		}
		RespondWithError(w, apiErr)
		return
	}
	RespondWithJSON(w, http.StatusCreated, map[string]any{
		"message": "Article added successfully!",
		"article": article.Body,
	})
}
