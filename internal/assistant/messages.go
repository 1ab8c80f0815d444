package assistant

// Replies owned by the chat front-end. Pipeline replies come from
// internal/domain.
const (
	WelcomeMessage = "Study mentor is live.\n" +
		"Ask any History question, or send your answer as a photo, PDF or text and ask me to evaluate it."
	NoSubmissionMessage   = "Send your answer as a photo, PDF or text first, then ask me to evaluate it."
	UnsupportedMessage    = "I can read text messages, photos and PDF documents."
	NotAuthorizedMessage  = "You are not authorized."
	UploadUsageMessage    = "Use:\n/uploaddoc <ADMIN_SECRET>\nThen send the PDF."
	UploadArmedMessage    = "Now send the PDF/DOC file. I will upload it."
	UploadStartedMessage  = "Uploading to the knowledge base..."
	UploadDoneFormat      = "Uploaded and indexed.\nFile ID: %s"
	UploadFailedFormat    = "Upload failed while %s. %s"
	UploadDisabledMessage = "Document upload is not configured."
	ThrottledFormat       = "You are sending messages too quickly. Please wait %d seconds."
)
