package template

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"messaging-core/internal/gateway"
	"messaging-core/internal/models"

	"gorm.io/gorm"
)

// TemplateGateway is the slice of the remote client the submission service
// needs. Satisfied by *gateway.Client.
type TemplateGateway interface {
	SubmitTemplate(ctx context.Context, account *models.Account, sub gateway.TemplateSubmission) (string, string, error)
	ListTemplates(ctx context.Context, account *models.Account) ([]gateway.RemoteTemplate, error)
}

// Submitter drives a stored template through compilation and remote
// submission, and keeps the local approval status in sync by polling.
type Submitter struct {
	DB       *gorm.DB
	Gateway  TemplateGateway
	Compiler *Compiler
}

func NewSubmitter(db *gorm.DB, gw TemplateGateway, compiler *Compiler) *Submitter {
	return &Submitter{DB: db, Gateway: gw, Compiler: compiler}
}

// Submit compiles and submits one template on behalf of an account.
// Validation errors block submission entirely. A gateway rejection is written
// into the template record (status failed + structured reason) and returned
// so the caller can surface it; only draft and failed templates may be
// (re)submitted.
func (s *Submitter) Submit(ctx context.Context, accountID, templateID uint) (*models.Template, error) {
	var account models.Account
	if err := s.DB.First(&account, accountID).Error; err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	var tpl models.Template
	if err := s.DB.First(&tpl, templateID).Error; err != nil {
		return nil, fmt.Errorf("load template: %w", err)
	}

	if tpl.Status != models.TemplateDraft && tpl.Status != models.TemplateFailed {
		return nil, fmt.Errorf("template %s is %s and cannot be resubmitted", tpl.Name, tpl.Status)
	}

	components, err := s.Compiler.Compile(ctx, &tpl)
	if err != nil {
		return nil, err
	}

	sub := gateway.TemplateSubmission{
		Name:       tpl.Name,
		Language:   tpl.Language,
		Category:   tpl.Category,
		Components: components,
	}

	remoteID, remoteStatus, err := s.Gateway.SubmitTemplate(ctx, &account, sub)
	if err != nil {
		tpl.Status = models.TemplateFailed
		tpl.RejectedReason = err.Error()
		if saveErr := s.DB.Save(&tpl).Error; saveErr != nil {
			log.Printf("Error saving failed template %s: %v", tpl.Name, saveErr)
		}
		return &tpl, err
	}

	tpl.RemoteID = remoteID
	tpl.Status = localStatus(remoteStatus)
	tpl.RejectedReason = ""
	if err := s.DB.Save(&tpl).Error; err != nil {
		return nil, fmt.Errorf("save template: %w", err)
	}
	return &tpl, nil
}

// SyncStatuses refreshes the approval status of submitted templates from the
// platform, once per configured account.
func (s *Submitter) SyncStatuses(ctx context.Context) error {
	var accounts []models.Account
	if err := s.DB.Where("active = ? AND business_id <> ''", true).Find(&accounts).Error; err != nil {
		return err
	}

	for i := range accounts {
		remote, err := s.Gateway.ListTemplates(ctx, &accounts[i])
		if err != nil {
			log.Printf("Error listing templates for account %d: %v", accounts[i].ID, err)
			continue
		}

		for _, rt := range remote {
			updates := map[string]interface{}{"status": localStatus(rt.Status)}
			if rt.RejectedReason != "" {
				updates["rejected_reason"] = rt.RejectedReason
			}
			err := s.DB.Model(&models.Template{}).
				Where("remote_id = ? AND status = ?", rt.ID, models.TemplatePending).
				Updates(updates).Error
			if err != nil {
				log.Printf("Error updating template %s: %v", rt.Name, err)
			}
		}
	}
	return nil
}

// RunStatusPoller refreshes pending template statuses on a fixed interval
// until the context is cancelled. Polling keeps the integration free of a
// persistent platform connection; approval latency is minutes, not seconds.
func (s *Submitter) RunStatusPoller(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.SyncStatuses(ctx); err != nil {
				log.Printf("Template status sync failed: %v", err)
			}
		}
	}
}

func localStatus(remote string) string {
	switch strings.ToUpper(remote) {
	case "APPROVED":
		return models.TemplateApproved
	case "REJECTED":
		return models.TemplateRejected
	case "PENDING", "IN_APPEAL", "":
		return models.TemplatePending
	default:
		return models.TemplatePending
	}
}
