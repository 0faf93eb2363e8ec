package service

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"path/filepath"

	"medmatch/internal/entities"
)

type SenderService struct {
}

func NewSenderService() *SenderService {
	return &SenderService{}
}

// NotifyAssignment sends the assignment status email and SMS to one
// recipient. The email goes out on a goroutine so a slow SendGrid call never
// delays the API response; the SMS call is already fast enough to stay inline.
func (s *SenderService) NotifyAssignment(toEmail, toPhone string, data entities.AssignmentEmailData) {
	s.sendAssignmentEmail(toEmail, data)
	s.sendAssignmentSMS(toPhone, data)
}

func (s *SenderService) sendAssignmentEmail(toEmail string, data entities.AssignmentEmailData) {
	if toEmail == "" {
		return
	}

	subject := fmt.Sprintf("Assignment %s - patient %s", data.Status, data.PatientName)

	plainTextBody := fmt.Sprintf(
		"Hello %s,\n\nThe assignment for patient %s is now %s.\n\n"+
			"Assignment details:\n"+
			"Doctor: %s\n"+
			"Hospital: %s\n"+
			"Priority: %s\n",
		data.RecipientName, data.PatientName, data.Status,
		data.DoctorName, data.HospitalName, data.Priority,
	)
	if data.SlotDate != "" {
		plainTextBody += fmt.Sprintf("Scheduled: %s %s\n", data.SlotDate, data.SlotTime)
	}
	if data.Reason != "" {
		plainTextBody += fmt.Sprintf("Reason: %s\n", data.Reason)
	}
	plainTextBody += "\nMedMatch. All rights reserved."

	tmplPath := filepath.Join("internal", "templates", "assignment_email.html")
	tmpl, err := template.ParseFiles(tmplPath)
	if err != nil {
		log.Printf("ALERT: Error parsing HTML email template (%s): %v", tmplPath, err)
		return
	}

	var htmlBodyBuffer bytes.Buffer
	if err := tmpl.Execute(&htmlBodyBuffer, data); err != nil {
		log.Printf("ALERT: Error executing HTML email template for patient %s: %v", data.PatientName, err)
	}
	htmlBody := htmlBodyBuffer.String()

	go func(toEmail, recipientName, subject, plainBody, htmlBodyContent string) {
		if errEmail := SendEmailWithSendGrid(toEmail, recipientName, subject, plainBody, htmlBodyContent); errEmail != nil {
			log.Printf("ALERT (async): Failed to send assignment email to %s: %v", toEmail, errEmail)
		}
	}(toEmail, data.RecipientName, subject, plainTextBody, htmlBody)
}

func (s *SenderService) sendAssignmentSMS(toPhone string, data entities.AssignmentEmailData) {
	if toPhone == "" {
		return
	}

	smsMessage := fmt.Sprintf("MedMatch: assignment for patient %s is %s (priority %s).",
		data.PatientName, data.Status, data.Priority)
	if data.SlotDate != "" {
		smsMessage += fmt.Sprintf("\nScheduled: %s %s.", data.SlotDate, data.SlotTime)
	}
	smsMessage += "\nMore details in your email."

	if errSMS := SendSMS(toPhone, smsMessage); errSMS != nil {
		log.Printf("ALERT: Failed to send assignment SMS to %s: %v", toPhone, errSMS)
	}
}
