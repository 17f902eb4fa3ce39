package handler

import (
	"errors"
	"fmt"
	"net/http"

	"go-pos/apps/gateway/middleware"
	"go-pos/pkg/model"
	"go-pos/pkg/response"
	"go-pos/pkg/transfer"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// ListTables returns the floor. ?refresh=true bypasses the cache.
func (h *Handler) ListTables(c *gin.Context) {
	tables := h.d.Tables.Bind(h.api(c))
	load := tables.List
	if c.Query("refresh") == "true" {
		load = tables.Refetch
	}
	list, err := load(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to load tables")
		return
	}
	response.Success(c, list)
}

// TransferSources lists the occupied tables an order can be moved from.
func (h *Handler) TransferSources(c *gin.Context) {
	st, err := h.workflow(c).Start(c.Request.Context())
	if errors.Is(err, transfer.ErrNoOccupiedTables) {
		response.Message(c, "No occupied tables to transfer", transfer.SelectSource{Candidates: []model.Table{}})
		return
	}
	if err != nil {
		h.fail(c, err, "Failed to load tables")
		return
	}
	response.Success(c, st)
}

// TransferDestinations lists the move and merge targets for ?source=.
func (h *Handler) TransferDestinations(c *gin.Context) {
	source := c.Query("source")
	if source == "" {
		response.Error(c, http.StatusBadRequest, "source is required")
		return
	}
	wf := h.workflow(c)
	st, err := h.selectSource(c, wf, model.FlexString(source))
	if err != nil {
		h.fail(c, err, "Failed to load tables")
		return
	}
	response.Success(c, st)
}

// selectSource runs the workflow up to destination selection. The gateway keeps no
// workflow between requests, so every call replays it against fresh tables.
func (h *Handler) selectSource(c *gin.Context, wf *transfer.Workflow, source model.FlexString) (transfer.SelectDestination, error) {
	if _, err := wf.Start(c.Request.Context()); err != nil && !errors.Is(err, transfer.ErrNoOccupiedTables) {
		return transfer.SelectDestination{}, err
	}
	return wf.ChooseSource(source)
}

type transferRequest struct {
	SourceID      model.FlexString `json:"source_id" binding:"required"`
	DestinationID model.FlexString `json:"destination_id" binding:"required"`
}

type transferResponse struct {
	Result          *transfer.Result       `json:"result,omitempty"`
	ConfirmRequired bool                   `json:"confirm_required"`
	Confirmation    *transfer.ConfirmMerge `json:"confirmation,omitempty"`
	// Degraded is set when the orders could not be loaded for the merge comparison.
	Degraded bool `json:"degraded,omitempty"`
}

// Transfer moves the source order to an available destination. An occupied destination is
// not merged here: the merge confirmation is returned and the client confirms it with
// TransferMerge.
func (h *Handler) Transfer(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	wf := h.workflow(c)
	if _, err := h.selectSource(c, wf, req.SourceID); err != nil {
		h.fail(c, err, "Failed to move table")
		return
	}
	out, err := wf.ChooseDestination(c.Request.Context(), req.DestinationID)
	if err != nil {
		h.fail(c, err, "Failed to move table")
		return
	}

	if out.Result != nil {
		response.Message(c, out.Result.Message, transferResponse{Result: out.Result})
		return
	}
	response.Message(c, "Confirm merge", transferResponse{
		ConfirmRequired: true,
		Confirmation:    out.Confirm,
		Degraded:        out.Confirm.Degraded(),
	})
}

// TransferMerge merges the source order into an occupied destination.
func (h *Handler) TransferMerge(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}

	wf := h.workflow(c)
	if _, err := h.selectSource(c, wf, req.SourceID); err != nil {
		h.fail(c, err, "Failed to merge tables")
		return
	}
	// the preview was shown by /transfer; the destination may have been freed since
	if _, err := wf.ChooseMergeTarget(req.DestinationID); err != nil {
		if errors.Is(err, transfer.ErrDestinationNotOffered) {
			response.Error(c, http.StatusConflict, fmt.Sprintf("Table %s is no longer occupied; reload and try again", req.DestinationID))
			return
		}
		h.fail(c, err, "Failed to merge tables")
		return
	}
	res, err := wf.ConfirmMerge(c.Request.Context())
	if err != nil {
		h.fail(c, err, "Failed to merge tables")
		return
	}
	response.Message(c, res.Message, transferResponse{Result: &res})
}

type cancelRequest struct {
	TableIDs   []model.FlexString `json:"table_ids" binding:"required,min=1"`
	ManagerPin string             `json:"manager_pin"`
}

type cancelResponse struct {
	transfer.BulkResult
	Cancelled int `json:"cancelled"`
	Failed    int `json:"failed"`
}

// CancelTables cancels the orders on the selected tables and frees them. Partial failure is
// reported per table with 207.
func (h *Handler) CancelTables(c *gin.Context) {
	var req cancelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, err.Error())
		return
	}
	if h.d.ManagerPinHash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(h.d.ManagerPinHash), []byte(req.ManagerPin)); err != nil {
			response.Error(c, http.StatusForbidden, "Manager approval required")
			return
		}
	}

	api := h.api(c)
	claims := middleware.Claims(c)
	canceller := transfer.NewCanceller(api, h.d.Tables.Bind(api), h.log).
		WithEvents(h.d.Notifier, h.d.Audit).
		WithActor(claims.StaffName)

	res, err := canceller.Cancel(c.Request.Context(), req.TableIDs, Origin)
	if err != nil {
		h.fail(c, err, "Failed to load tables")
		return
	}

	body := cancelResponse{BulkResult: res, Cancelled: res.Cancelled(), Failed: len(res.Failed())}
	h.log.WithFields(log.Fields{"cancelled": body.Cancelled, "failed": body.Failed, "staff": claims.StaffName}).Info("bulk cancel")
	switch {
	case body.Failed == 0:
		response.Message(c, fmt.Sprintf("Cancelled %d table(s)", body.Cancelled), body)
	case body.Cancelled > 0:
		response.Status(c, http.StatusMultiStatus, "Some tables could not be cancelled", body)
	default:
		response.Status(c, http.StatusBadGateway, "No tables were cancelled", body)
	}
}

