package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/cardbox/internal/models"
)

var _ list.Item = jobItem{}

// jobItem wraps [models.Job] to implement [list.Item].
type jobItem struct {
	job models.Job
}

func (i jobItem) FilterValue() string { return i.job.Title }
func (i jobItem) Title() string       { return i.job.Title }
func (i jobItem) Description() string {
	status := styles.statusStyle(i.job.Status == models.JobFailed).Render(string(i.job.Status))
	desc := fmt.Sprintf("%s • %s", i.job.Type, status)
	if i.job.Error != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.job.Error)
	}
	return desc
}

func jobItems(jobs []models.Job) []list.Item {
	items := make([]list.Item, len(jobs))
	for i, job := range jobs {
		items[i] = jobItem{job: job}
	}
	return items
}
