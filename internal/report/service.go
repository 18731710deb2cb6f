package report

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/signintech/gopdf"
	"go.uber.org/zap"

	"medtriage/internal/session"
)

type TelegramClient interface {
	SendDocument(chatID int64, fileData []byte, fileName string) error
}

// Service renders closed critical cases as PDF reports and forwards them to
// the on-call physician chat.
type Service struct {
	tgClient     TelegramClient
	doctorChatID int64
	log          *zap.Logger
}

func NewService(tg TelegramClient, doctorChatID int64, log *zap.Logger) *Service {
	return &Service{
		tgClient:     tg,
		doctorChatID: doctorChatID,
		log:          log,
	}
}

// fontPaths covers common DejaVu locations across Alpine and Debian images.
var fontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

// SendCaseReport renders the session as a PDF and delivers it to the doctor
// chat.
func (s *Service) SendCaseReport(ctx context.Context, sess *session.Session) error {
	data, err := s.renderPDF(sess)
	if err != nil {
		return fmt.Errorf("render case report: %w", err)
	}

	fileName := fmt.Sprintf("case_%s.pdf", sess.ID)
	if err := s.tgClient.SendDocument(s.doctorChatID, data, fileName); err != nil {
		return fmt.Errorf("send case report: %w", err)
	}
	s.log.Info("case report delivered",
		zap.String("session_id", sess.ID), zap.Int64("chat_id", s.doctorChatID))
	return nil
}

func (s *Service) renderPDF(sess *session.Session) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	var fontErr error
	fontLoaded := false
	for _, path := range fontPaths {
		if err := pdf.AddTTFFont("DejaVu", path); err == nil {
			fontLoaded = true
			break
		} else {
			fontErr = err
		}
	}
	if !fontLoaded {
		return nil, fmt.Errorf("load report font (is ttf-dejavu installed?): %w", fontErr)
	}

	if err := pdf.SetFont("DejaVu", "", 20); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Critical Case Report")
	pdf.Br(30)

	if err := pdf.SetFont("DejaVu", "", 12); err != nil {
		return nil, err
	}
	pdf.Cell(nil, fmt.Sprintf("Date: %s", time.Now().Format("02.01.2006 15:04")))
	pdf.Br(15)
	pdf.Cell(nil, fmt.Sprintf("Patient ID: %s", sess.ID))
	pdf.Br(15)
	urgency := sess.UrgencyLevel
	if urgency == "" {
		urgency = "not assessed"
	}
	pdf.Cell(nil, fmt.Sprintf("Urgency: %s", urgency))
	pdf.Br(25)

	sections := []struct {
		title string
		body  string
	}{
		{"Reported Symptoms", strings.Join(sess.Symptoms, "; ")},
		{"Previous Medical History", sess.PreviousHistory},
		{"Medication History", sess.MedicationHistory},
		{"Additional Symptoms", sess.AdditionalSymptoms},
		{"Preliminary Diagnosis", stripMarkup(sess.Diagnosis)},
	}
	for _, sec := range sections {
		if sec.body == "" {
			continue
		}
		if err := pdf.SetFont("DejaVu", "", 14); err != nil {
			return nil, err
		}
		pdf.Cell(nil, sec.title+":")
		pdf.Br(15)

		if err := pdf.SetFont("DejaVu", "", 11); err != nil {
			return nil, err
		}
		lines, _ := pdf.SplitText(sec.body, 500)
		for _, l := range lines {
			pdf.Cell(nil, l)
			pdf.Br(12)
		}
		pdf.Br(10)
	}

	pdf.SetY(270)
	if err := pdf.SetFont("DejaVu", "", 9); err != nil {
		return nil, err
	}
	pdf.Cell(nil, "Generated automatically from a patient intake conversation. Not a medical record.")

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// stripMarkup flattens the HTML diagnosis card into plain text for the PDF.
func stripMarkup(text string) string {
	var b strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			b.WriteRune(' ')
		case !inTag:
			b.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
