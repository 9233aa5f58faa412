package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/gig-marketplace/internal/domain/valueobject"
	"github.com/ignatzorin/gig-marketplace/internal/interface/http/dto"
	"github.com/ignatzorin/gig-marketplace/internal/interface/http/response"
	"github.com/ignatzorin/gig-marketplace/internal/usecase/job"
)

type JobUseCases struct {
	Create    *job.CreateJobUseCase
	Get       *job.GetJobUseCase
	ListOpen  *job.ListOpenJobsUseCase
	ListMy    *job.ListMyJobsUseCase
	Delete    *job.DeleteJobUseCase
	Cancel    *job.CancelJobUseCase
	SetActive *job.SetJobActiveUseCase
	WorkDone  *job.MarkWorkDoneUseCase
}

type JobHandler struct {
	uc JobUseCases
}

func NewJobHandler(uc JobUseCases) *JobHandler {
	return &JobHandler{uc: uc}
}

func (h *JobHandler) CreateJob(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.CreateJobRequest
	if !bindJSON(c, &req) {
		return
	}

	created, err := h.uc.Create.Execute(c.Request.Context(), job.CreateJobInput{
		ClientID:         userID,
		Title:            req.Title,
		Description:      req.Description,
		Category:         req.Category,
		Amount:           req.Amount,
		NumberOfPeople:   req.NumberOfPeople,
		Address:          req.Address,
		GenderPreference: req.GenderPreference,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToJobResponse(created))
}

func (h *JobHandler) ListOpenJobs(c *gin.Context) {
	limit, offset := page(c)
	out, err := h.uc.ListOpen.Execute(c.Request.Context(), c.Query("category"), limit, offset)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, dto.ToJobResponses(out.Jobs), out.Total, limit, offset)
}

func (h *JobHandler) GetJob(c *gin.Context) {
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	found, err := h.uc.Get.Execute(c.Request.Context(), jobID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToJobResponse(found))
}

func (h *JobHandler) ListMyJobs(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	input := job.ListMyJobsInput{UserID: userID, Role: currentRole(c)}
	if raw := c.Query("status"); raw != "" {
		status, err := valueobject.NewJobStatus(raw)
		if err != nil {
			response.Error(c, err)
			return
		}
		input.Status = &status
	}
	input.Limit, input.Offset = page(c)

	out, err := h.uc.ListMy.Execute(c.Request.Context(), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, dto.ToJobResponses(out.Jobs), out.Total, input.Limit, input.Offset)
}

func (h *JobHandler) DeleteJob(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := h.uc.Delete.Execute(c.Request.Context(), jobID, userID); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

func (h *JobHandler) CancelJob(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	cancelled, err := h.uc.Cancel.Execute(c.Request.Context(), jobID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToJobResponse(cancelled))
}

func (h *JobHandler) SetJobActive(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.SetJobActiveRequest
	if !bindJSON(c, &req) {
		return
	}
	updated, err := h.uc.SetActive.Execute(c.Request.Context(), jobID, userID, *req.IsActive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToJobResponse(updated))
}

func (h *JobHandler) MarkWorkDone(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	jobID, ok := pathID(c, "id")
	if !ok {
		return
	}
	updated, err := h.uc.WorkDone.Execute(c.Request.Context(), jobID, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, dto.ToJobResponse(updated))
}
