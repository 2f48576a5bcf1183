package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oldnordic/odincode/pkg/plan"
	"github.com/oldnordic/odincode/pkg/planexec"
)

// submitPlanRequest is the body of POST /plans: raw LM or user-authored
// text, parsed the same graceful-degradation way the chat loop parses a
// candidate plan — never a hard error for malformed JSON here,
// unlike the CLI's one-shot `plan` subcommand which uses plan.ParseStrict.
type submitPlanRequest struct {
	Input string `json:"input"`
}

func (s *Server) handleSubmitPlan(c *gin.Context) {
	var req submitPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	p, err := plan.Parse(req.Input)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// authorizePlanRequest is the body of POST /plans/authorize: the plan the
// UI collaborator is submitting for execution, plus its authorization
// decision. The UI, not this server, is the authorizing party — running
// a plan requires an Approved PlanAuthorization, and submitting the
// request at all is that authorization, so a step's requires_confirmation gate is
// satisfied automatically rather than looping back over HTTP for a second
// round-trip per step.
type authorizePlanRequest struct {
	Plan     plan.Plan `json:"plan"`
	Approved bool      `json:"approved"`
}

func (s *Server) handleAuthorizePlan(c *gin.Context) {
	var req authorizePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if verr := plan.Validate(&req.Plan); verr != nil {
		writeError(c, verr)
		return
	}
	if !req.Approved {
		c.JSON(http.StatusOK, gin.H{"plan_id": req.Plan.PlanID, "status": plan.AuthorizationRejected})
		return
	}

	approved := planexec.ApprovedPlan{
		Plan:          &req.Plan,
		Authorization: plan.Authorization{PlanID: req.Plan.PlanID, Status: plan.AuthorizationApproved},
	}
	execCfg := planexec.Config{Root: s.cfg.RootDir(), Graph: s.mem.Graph(), Memory: s.mem, Tool: s.toolCfg}

	result, err := planexec.Run(reqCtx(c), approved, execCfg, autoConfirm, planexec.Hooks{})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// autoConfirm is the ConfirmFunc for /plans/authorize: the caller's POST
// already carries the plan-level authorization, so any step-level
// requires_confirmation gate is treated as already satisfied.
func autoConfirm(plan.Step) bool { return true }
