package oracle

import (
	"fmt"
	"strings"

	"github.com/IMINABO1/Vault/server/models"
)

// BuildPrompt renders the instructions sent along with the image. The
// key-field lists come from the canonical labels of each document type.
func BuildPrompt(typeHint string) string {
	types := make([]string, 0, len(models.DocumentTypes)+1)
	for _, docType := range models.DocumentTypes {
		types = append(types, fmt.Sprintf("%q", docType))
	}
	types = append(types, `"not_a_document"`)

	fieldRules := strings.Builder{}
	for _, docType := range models.DocumentTypes {
		labels := docType.KeyFieldLabels()
		if len(labels) == 0 {
			continue
		}
		fmt.Fprintf(&fieldRules, "- %s: %s\n", docType, strings.Join(labels, ", "))
	}

	return fmt.Sprintf(`You are a document verification system for a digital document wallet.
The user says this image is a %q.

First decide whether the image shows an official identity or legal document.
Selfies, screenshots, random photos and blank pages are NOT documents.
Then decide which type it actually is, whatever the user selected.

Return ONLY a JSON object, no markdown and no commentary, with this structure:
{
  "isDocument": true or false,
  "detectedType": one of [%s],
  "correctedType": the type to store, one of the same values except "not_a_document",
  "userSelectionCorrect": true if the user's selection matches the detected type,
  "holderName": full name of the document holder or null,
  "documentNumber": the document number or null,
  "expiryDate": expiry date as YYYY-MM-DD or null,
  "issuingCountry": issuing country or null,
  "rejectionReason": if isDocument is false, a short explanation for the user, else null,
  "keyFields": [{"label": "...", "value": "..."}]
}

keyFields lists the visible fields of the document, using these labels in this order when present:
%s- any other type: the most relevant identifying fields you can read.
Always include "Full Name" and "Date of Birth" when they are visible. Omit fields you cannot read.`,
		typeHint, strings.Join(types, ", "), fieldRules.String())
}
