package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type SubmissionRoutes struct {
	server ServerInterface
}

func NewSubmissionRoutes(server ServerInterface) *SubmissionRoutes {
	return &SubmissionRoutes{server: server}
}

func (sr *SubmissionRoutes) RegisterRoutes(r *gin.Engine) {
	middleware := NewMiddleware(sr.server)
	authed := middleware.AuthMiddleware()

	r.GET("/castings/:id/submissions", authed, sr.listSubmissionsHandler)
	r.POST("/castings/:id/submissions/:creatorID/submit", authed, sr.submitWorkHandler)
	r.POST("/castings/:id/submissions/:creatorID/review", authed, sr.reviewSubmissionHandler)
	r.POST("/castings/:id/submissions/:creatorID/upload-link", authed, sr.attachUploadLinkHandler)
	r.POST("/castings/:id/submissions/:creatorID/deliverables", authed, sr.uploadDeliverableHandler)
	r.GET("/castings/:id/submissions/:creatorID/deliverables", authed, sr.listDeliverablesHandler)
}

func (sr *SubmissionRoutes) listSubmissionsHandler(c *gin.Context) {
	castingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	db := sr.server.GetDB()
	casting, err := db.Castings.Get(castingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Casting not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch casting"})
		}
		return
	}

	role := currentRole(c)
	if !role.IsAgency() && !role.OwnsClient(casting.ClientID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to view these submissions"})
		return
	}

	submissions, err := db.Submissions.ForCasting(castingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch submissions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"submissions": submissions, "total": len(submissions)})
}

func (sr *SubmissionRoutes) submitWorkHandler(c *gin.Context) {
	castingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	creatorID, ok := parseUUIDParam(c, "creatorID")
	if !ok {
		return
	}

	err := sr.server.GetOrchestrator().SubmitWork(c.Request.Context(), currentRole(c), castingID, creatorID)
	if err != nil {
		renderWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Work submitted for review"})
}

func (sr *SubmissionRoutes) reviewSubmissionHandler(c *gin.Context) {
	castingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	creatorID, ok := parseUUIDParam(c, "creatorID")
	if !ok {
		return
	}

	var req struct {
		Approved *bool  `json:"approved" binding:"required"`
		Feedback string `json:"feedback"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := sr.server.GetOrchestrator().ReviewSubmission(c.Request.Context(), currentRole(c), castingID, creatorID, *req.Approved, req.Feedback)
	if err != nil {
		renderWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Review recorded"})
}

func (sr *SubmissionRoutes) attachUploadLinkHandler(c *gin.Context) {
	castingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	creatorID, ok := parseUUIDParam(c, "creatorID")
	if !ok {
		return
	}

	var req struct {
		Link string `json:"link" binding:"required,url"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := sr.server.GetOrchestrator().AttachUploadLink(c.Request.Context(), currentRole(c), castingID, creatorID, req.Link)
	if err != nil {
		renderWorkflowError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Upload link attached"})
}

func (sr *SubmissionRoutes) uploadDeliverableHandler(c *gin.Context) {
	castingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	creatorID, ok := parseUUIDParam(c, "creatorID")
	if !ok {
		return
	}

	role := currentRole(c)
	if !role.IsAgency() && !role.IsCreator(creatorID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to upload for this creator"})
		return
	}

	drive := sr.server.GetDrive()
	if drive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage is not configured"})
		return
	}

	submission, err := sr.server.GetDB().Submissions.GetByCastingAndCreator(castingID, creatorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch submission"})
		}
		return
	}
	if submission.DriveFolderID == "" {
		c.JSON(http.StatusConflict, gin.H{"error": "No content folder provisioned for this submission"})
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	defer file.Close()

	result, err := drive.UploadDeliverable(c.Request.Context(), file, header, submission.DriveFolderID)
	if err != nil {
		sr.server.GetLogger().WithError(err).Error("deliverable upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to upload deliverable"})
		return
	}

	url, err := drive.GeneratePresignedURL(c.Request.Context(), result.Key, 24*time.Hour)
	if err != nil {
		sr.server.GetLogger().WithError(err).Warn("could not presign deliverable URL")
	}

	c.JSON(http.StatusCreated, gin.H{
		"key":         result.Key,
		"size":        result.FileSize,
		"mime_type":   result.MimeType,
		"uploaded_at": result.UploadedAt,
		"url":         url,
	})
}

func (sr *SubmissionRoutes) listDeliverablesHandler(c *gin.Context) {
	castingID, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	creatorID, ok := parseUUIDParam(c, "creatorID")
	if !ok {
		return
	}

	db := sr.server.GetDB()
	casting, err := db.Castings.Get(castingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Casting not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch casting"})
		}
		return
	}

	role := currentRole(c)
	if !role.IsAgency() && !role.OwnsClient(casting.ClientID) && !role.IsCreator(creatorID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "You are not allowed to view these deliverables"})
		return
	}

	drive := sr.server.GetDrive()
	if drive == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage is not configured"})
		return
	}

	submission, err := db.Submissions.GetByCastingAndCreator(castingID, creatorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch submission"})
		}
		return
	}
	if submission.DriveFolderID == "" {
		c.JSON(http.StatusOK, gin.H{"deliverables": []string{}, "total": 0})
		return
	}

	keys, err := drive.ListFolder(c.Request.Context(), submission.DriveFolderID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list deliverables"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deliverables": keys, "total": len(keys)})
}
