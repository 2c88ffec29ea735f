package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/domain"
	"github.com/sysu-ecnc-dev/crew-booking/backend/internal/utils"
)

func (h *Handler) PutWorkTeamShift(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string  `json:"name" validate:"max=100"`
		WorkingDays []int32 `json:"workingDays" validate:"max=7,dive,min=1,max=7"`
		Shifts      []struct {
			StartTime string `json:"startTime" validate:"required,datetime=15:04:05"`
			EndTime   string `json:"endTime" validate:"required"`
		} `json:"shifts" validate:"dive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	shift := &domain.WorkTeamShift{
		ResourceID:  chi.URLParam(r, "resourceID"),
		Name:        req.Name,
		WorkingDays: req.WorkingDays,
		Shifts:      make([]domain.ShiftWindow, 0, len(req.Shifts)),
	}
	for _, s := range req.Shifts {
		shift.Shifts = append(shift.Shifts, domain.ShiftWindow{StartTime: s.StartTime, EndTime: s.EndTime})
	}
	if shift.WorkingDays == nil {
		shift.WorkingDays = []int32{}
	}

	// 检查班次窗口的格式和是否冲突
	if err := utils.ValidateWorkTeamShift(shift); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.reference.UpsertWorkTeamShift(r.Context(), shift); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "保存班次成功", shift)
}

func (h *Handler) GetWorkTeamShift(w http.ResponseWriter, r *http.Request) {
	shift, err := h.reference.GetWorkTeamShift(r.Context(), chi.URLParam(r, "resourceID"))
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "该资源没有班次数据")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取班次成功", shift)
}

func (h *Handler) DeleteWorkTeamShift(w http.ResponseWriter, r *http.Request) {
	if err := h.reference.DeleteWorkTeamShift(r.Context(), chi.URLParam(r, "resourceID")); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.notFound(w, r, "该资源没有班次数据")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "删除班次成功", nil)
}
