package http

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ignatij/letterflow/internal/log"
	"github.com/ignatij/letterflow/pkg/models"
	"github.com/ignatij/letterflow/pkg/render"
	"github.com/ignatij/letterflow/pkg/service"
)

const maxUploadBytes = 32 << 20

// StartServer wires the task API and blocks serving it.
func StartServer(port string, svc *service.TaskService, poller *service.Poller) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler)
	mux.HandleFunc("/status", StatusHandler(svc, poller))
	mux.HandleFunc("/tasks", TasksHandler(svc))
	mux.HandleFunc("/tasks/", TaskByIDHandler(svc))

	log.GetLogger().Infof("Starting Letterflow server on :%s", port)
	return http.ListenAndServe(":"+port, mux)
}

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "Letterflow server is running")
}

// taskView is the JSON shape of a task; raw upload and document bytes are
// never embedded.
type taskView struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Instructions  string            `json:"instructions"`
	Interval      int               `json:"interval"`
	IntervalLabel string            `json:"interval_label"`
	Model         string            `json:"model"`
	Sources       models.SourceSet  `json:"sources"`
	Template      string            `json:"template,omitempty"`
	ContextDocs   []string          `json:"context_docs,omitempty"`
	Active        bool              `json:"active"`
	Status        models.TaskStatus `json:"status"`
	LastRun       string            `json:"last_run"`
	NextRun       string            `json:"next_run"`
	LastError     string            `json:"last_error,omitempty"`
	OutputCount   int               `json:"output_count"`
}

type outputView struct {
	Index       int      `json:"index"`
	Timestamp   string   `json:"timestamp"`
	Model       string   `json:"model"`
	SourcesUsed []string `json:"sources_used"`
	Text        string   `json:"text"`
	HasDocument bool     `json:"has_document"`
}

func viewOf(t models.Task) taskView {
	v := taskView{
		ID:            t.ID,
		Name:          t.Name,
		Instructions:  t.Instructions,
		Interval:      t.Interval,
		IntervalLabel: models.FormatInterval(t.Interval),
		Model:         t.Model,
		Sources:       t.Sources,
		Active:        t.Active,
		Status:        t.Status,
		LastRun:       models.FormatTime(t.LastRun),
		NextRun:       models.FormatTime(t.NextRun),
		LastError:     t.LastError,
		OutputCount:   len(t.Outputs),
	}
	if !t.Active {
		v.NextRun = "paused"
	}
	if t.Template != nil {
		v.Template = t.Template.Name
	}
	for _, doc := range t.ContextDocs {
		v.ContextDocs = append(v.ContextDocs, doc.Name)
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.GetLogger().Errorf("Failed to encode response: %v", err)
	}
}

// TasksHandler lists tasks and creates new ones from multipart forms.
func TasksHandler(svc *service.TaskService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			listTasks(w, svc)
		case http.MethodPost:
			createTask(w, r, svc)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func listTasks(w http.ResponseWriter, svc *service.TaskService) {
	tasks, err := svc.ListTasks()
	if err != nil {
		log.GetLogger().Errorf("Failed to list tasks: %v", err)
		http.Error(w, fmt.Sprintf("Failed to list tasks: %v", err), http.StatusInternalServerError)
		return
	}
	views := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		views = append(views, viewOf(t))
	}
	writeJSON(w, http.StatusOK, views)
}

func createTask(w http.ResponseWriter, r *http.Request, svc *service.TaskService) {
	if err := parseForm(r); err != nil {
		http.Error(w, fmt.Sprintf("Bad form data: %v", err), http.StatusBadRequest)
		return
	}
	name := r.FormValue("name")
	if name == "" {
		http.Error(w, "Missing 'name' parameter", http.StatusBadRequest)
		return
	}
	interval, _ := strconv.Atoi(r.FormValue("interval"))
	sources := sourcesFromForm(r)

	template, err := singleUpload(r, "template")
	if err != nil {
		http.Error(w, fmt.Sprintf("Bad template upload: %v", err), http.StatusBadRequest)
		return
	}
	docs, err := multiUpload(r, "docs")
	if err != nil {
		http.Error(w, fmt.Sprintf("Bad document upload: %v", err), http.StatusBadRequest)
		return
	}

	task, err := svc.CreateTask(name, r.FormValue("instructions"), interval, r.FormValue("model"), sources, template, docs)
	if err != nil {
		log.GetLogger().Errorf("Failed to create task: %v", err)
		http.Error(w, fmt.Sprintf("Failed to create task: %v", err), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusCreated, viewOf(task))
}

// TaskByIDHandler routes /tasks/{id} and its sub-resources: trigger,
// pause, resume, outputs and output document downloads.
func TaskByIDHandler(svc *service.TaskService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/tasks/"), "/"), "/")
		if len(parts) == 0 || parts[0] == "" {
			http.Error(w, "Missing task ID", http.StatusBadRequest)
			return
		}
		id := parts[0]

		switch {
		case len(parts) == 1:
			taskResource(w, r, svc, id)
		case len(parts) == 2 && parts[1] == "outputs":
			listOutputs(w, r, svc, id)
		case len(parts) == 2:
			taskAction(w, r, svc, id, parts[1])
		case len(parts) == 4 && parts[1] == "outputs" && parts[3] == "document":
			downloadDocument(w, r, svc, id, parts[2])
		default:
			http.Error(w, "Not found", http.StatusNotFound)
		}
	}
}

func taskResource(w http.ResponseWriter, r *http.Request, svc *service.TaskService, id string) {
	switch r.Method {
	case http.MethodGet:
		task, err := svc.GetTask(id)
		if err != nil {
			http.Error(w, fmt.Sprintf("Task not found: %v", err), http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(task))
	case http.MethodPatch, http.MethodPut:
		updateTask(w, r, svc, id)
	case http.MethodDelete:
		if err := svc.DeleteTask(id); err != nil {
			http.Error(w, fmt.Sprintf("Task not found: %v", err), http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func updateTask(w http.ResponseWriter, r *http.Request, svc *service.TaskService, id string) {
	if err := parseForm(r); err != nil {
		http.Error(w, fmt.Sprintf("Bad form data: %v", err), http.StatusBadRequest)
		return
	}
	var update service.TaskUpdate
	if v := r.FormValue("name"); v != "" {
		update.Name = &v
	}
	if v, ok := formField(r, "instructions"); ok {
		update.Instructions = &v
	}
	if v := r.FormValue("model"); v != "" {
		update.Model = &v
	}
	if v := r.FormValue("interval"); v != "" {
		interval, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "Bad 'interval' parameter", http.StatusBadRequest)
			return
		}
		update.Interval = &interval
	}
	if _, ok := formField(r, "events_enabled"); ok {
		sources := sourcesFromForm(r)
		update.Sources = &sources
	}

	task, err := svc.UpdateTask(id, update)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to update task: %v", err), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(task))
}

func taskAction(w http.ResponseWriter, r *http.Request, svc *service.TaskService, id, action string) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var (
		task models.Task
		err  error
	)
	switch action {
	case "trigger":
		task, err = svc.TriggerTask(id)
	case "pause":
		task, err = svc.PauseTask(id)
	case "resume":
		task, err = svc.ResumeTask(id)
	default:
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.GetLogger().Errorf("Task action %s failed for %s: %v", action, id, err)
		http.Error(w, fmt.Sprintf("Failed to %s task: %v", action, err), http.StatusConflict)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(task))
}

func listOutputs(w http.ResponseWriter, r *http.Request, svc *service.TaskService, id string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	task, err := svc.GetTask(id)
	if err != nil {
		http.Error(w, fmt.Sprintf("Task not found: %v", err), http.StatusNotFound)
		return
	}
	views := make([]outputView, 0, len(task.Outputs))
	for i, o := range task.Outputs {
		views = append(views, outputView{
			Index:       i,
			Timestamp:   o.Timestamp,
			Model:       o.Model,
			SourcesUsed: o.SourcesUsed,
			Text:        o.Text,
			HasDocument: len(o.Document) > 0,
		})
	}
	writeJSON(w, http.StatusOK, views)
}

func downloadDocument(w http.ResponseWriter, r *http.Request, svc *service.TaskService, id, index string) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	task, err := svc.GetTask(id)
	if err != nil {
		http.Error(w, fmt.Sprintf("Task not found: %v", err), http.StatusNotFound)
		return
	}
	n, err := strconv.Atoi(index)
	if err != nil || n < 0 || n >= len(task.Outputs) {
		http.Error(w, "Output not found", http.StatusNotFound)
		return
	}
	output := task.Outputs[n]
	if len(output.Document) == 0 {
		http.Error(w, "Output has no document", http.StatusNotFound)
		return
	}
	filename := fmt.Sprintf("%s_%d.docx", strings.ReplaceAll(task.Name, " ", "_"), n)
	w.Header().Set("Content-Type", render.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := w.Write(output.Document); err != nil {
		log.GetLogger().Errorf("Failed to write document response: %v", err)
	}
}

// StatusHandler reports the scheduler caption and per-task summaries.
func StatusHandler(svc *service.TaskService, poller *service.Poller) http.HandlerFunc {
	type status struct {
		Caption string     `json:"caption"`
		Tasks   []taskView `json:"tasks"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		tasks, err := svc.ListTasks()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to list tasks: %v", err), http.StatusInternalServerError)
			return
		}
		views := make([]taskView, 0, len(tasks))
		for _, t := range tasks {
			views = append(views, viewOf(t))
		}
		writeJSON(w, http.StatusOK, status{Caption: poller.Status(), Tasks: views})
	}
}

func parseForm(r *http.Request) error {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxUploadBytes)
	}
	return r.ParseForm()
}

func formField(r *http.Request, key string) (string, bool) {
	if r.Form == nil {
		return "", false
	}
	if vs, ok := r.Form[key]; ok && len(vs) > 0 {
		return vs[0], true
	}
	if r.MultipartForm != nil {
		if vs, ok := r.MultipartForm.Value[key]; ok && len(vs) > 0 {
			return vs[0], true
		}
	}
	return "", false
}

func sourcesFromForm(r *http.Request) models.SourceSet {
	boolField := func(key string) bool {
		v := strings.ToLower(r.FormValue(key))
		return v == "true" || v == "1" || v == "on"
	}
	intField := func(key string, fallback int) int {
		n, err := strconv.Atoi(r.FormValue(key))
		if err != nil || n <= 0 {
			return fallback
		}
		return n
	}
	return models.SourceSet{
		Events:   models.SourceSettings{Enabled: boolField("events_enabled"), Days: intField("events_days", 21)},
		Podcast:  models.SourceSettings{Enabled: boolField("podcast_enabled"), Days: intField("podcast_days", 7)},
		CMSJobs:  models.SourceSettings{Enabled: boolField("jobs_enabled")},
		CMSBlogs: models.SourceSettings{Enabled: boolField("blogs_enabled")},
	}
}

func singleUpload(r *http.Request, key string) (*models.Upload, error) {
	uploads, err := multiUpload(r, key)
	if err != nil || len(uploads) == 0 {
		return nil, err
	}
	return &uploads[0], nil
}

func multiUpload(r *http.Request, key string) ([]models.Upload, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	var uploads []models.Upload
	for _, header := range r.MultipartForm.File[key] {
		file, err := header.Open()
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(file)
		file.Close()
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, models.Upload{Name: header.Filename, Data: data})
	}
	return uploads, nil
}
