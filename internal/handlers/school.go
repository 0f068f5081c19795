package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tutoria-backend/internal/models"
	"tutoria-backend/internal/repository"
)

type SchoolHandler struct {
	schoolRepo  *repository.SchoolRepo
	classRepo   *repository.ClassRepo
	subjectRepo *repository.SubjectRepo
}

func NewSchoolHandler(schoolRepo *repository.SchoolRepo, classRepo *repository.ClassRepo, subjectRepo *repository.SubjectRepo) *SchoolHandler {
	return &SchoolHandler{schoolRepo: schoolRepo, classRepo: classRepo, subjectRepo: subjectRepo}
}

// Schools

func (h *SchoolHandler) ListSchools(w http.ResponseWriter, r *http.Request) {
	schools, err := h.schoolRepo.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list schools", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"schools": schools})
}

func (h *SchoolHandler) CreateSchool(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		City string `json:"city"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "School name is required", r))
		return
	}

	school := &models.School{Name: req.Name, City: req.City}
	if err := h.schoolRepo.Create(r.Context(), school); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create school", r))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"school": school})
}

func (h *SchoolHandler) UpdateSchool(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid school ID", r))
		return
	}

	var req struct {
		Name string `json:"name"`
		City string `json:"city"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "School name is required", r))
		return
	}

	school := &models.School{ID: id, Name: req.Name, City: req.City}
	if err := h.schoolRepo.Update(r.Context(), school); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to update school", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"school": school})
}

func (h *SchoolHandler) DeleteSchool(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid school ID", r))
		return
	}

	if err := h.schoolRepo.Delete(r.Context(), id); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete school", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "School deleted"})
}

// Classes

func (h *SchoolHandler) ListClasses(w http.ResponseWriter, r *http.Request) {
	schoolID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid school ID", r))
		return
	}

	classes, err := h.classRepo.ListBySchool(r.Context(), schoolID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list classes", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"classes": classes})
}

func (h *SchoolHandler) CreateClass(w http.ResponseWriter, r *http.Request) {
	schoolID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid school ID", r))
		return
	}

	var req struct {
		Name       string `json:"name"`
		GradeLevel int    `json:"grade_level"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Class name is required", r))
		return
	}

	class := &models.Class{SchoolID: schoolID, Name: req.Name, GradeLevel: req.GradeLevel}
	if err := h.classRepo.Create(r.Context(), class); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create class", r))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"class": class})
}

func (h *SchoolHandler) DeleteClass(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "classID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid class ID", r))
		return
	}

	if err := h.classRepo.Delete(r.Context(), id); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete class", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Class deleted"})
}

// Subjects

func (h *SchoolHandler) ListSubjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.subjectRepo.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to list subjects", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"subjects": subjects})
}

func (h *SchoolHandler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Subject name is required", r))
		return
	}

	subject := &models.Subject{Name: req.Name}
	if err := h.subjectRepo.Create(r.Context(), subject); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create subject", r))
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"subject": subject})
}

func (h *SchoolHandler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid subject ID", r))
		return
	}

	if err := h.subjectRepo.Delete(r.Context(), id); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to delete subject", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Subject deleted"})
}
