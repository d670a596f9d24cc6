package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentplan-backend/internal/http/response"
	"github.com/yungbote/contentplan-backend/internal/services"
)

type JobHandler struct {
	jobs services.JobService
}

func NewJobHandler(jobs services.JobService) *JobHandler {
	return &JobHandler{jobs: jobs}
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	owner, ok := requestOwner(c)
	if !ok {
		return
	}
	jobID, ok := pathUUID(c, "id", "invalid_job_id")
	if !ok {
		return
	}
	job, err := h.jobs.GetByIDForOwner(requestDBC(c), owner, jobID)
	if err != nil {
		response.RespondServiceError(c, "job_lookup_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}
