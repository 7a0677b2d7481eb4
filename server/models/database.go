package models

import "encoding/json"

// Database is the whole persisted state: one JSON document.
type Database struct {
	Documents         []Document           `json:"documents"`
	EmergencyContacts map[string][]Contact `json:"emergencyContacts"`
	Pins              map[string]string    `json:"pins"`
	Beacons           []Beacon             `json:"beacons"`
}

func NewDatabase() *Database {
	db := &Database{}
	db.Normalize()
	return db
}

// Normalize replaces missing collections so a partially written or
// older file still loads into a usable value.
func (db *Database) Normalize() {
	if db.Documents == nil {
		db.Documents = []Document{}
	}
	if db.EmergencyContacts == nil {
		db.EmergencyContacts = map[string][]Contact{}
	}
	if db.Pins == nil {
		db.Pins = map[string]string{}
	}
	if db.Beacons == nil {
		db.Beacons = []Beacon{}
	}
}

// Clone returns a deep copy.
func (db *Database) Clone() (*Database, error) {
	data, err := json.Marshal(db)
	if err != nil {
		return nil, err
	}

	clone := &Database{}
	if err := json.Unmarshal(data, clone); err != nil {
		return nil, err
	}
	clone.Normalize()

	return clone, nil
}

// DocumentIndex returns the position of the owner's document with id, or -1.
func (db *Database) DocumentIndex(userID, id string) int {
	for i, doc := range db.Documents {
		if doc.ID == id && doc.UserID == userID {
			return i
		}
	}
	return -1
}

func (db *Database) DocumentsFor(userID string) []Document {
	docs := []Document{}
	for _, doc := range db.Documents {
		if doc.UserID == userID {
			docs = append(docs, doc)
		}
	}
	return docs
}

func (db *Database) RemoveDocument(index int) Document {
	removed := db.Documents[index]
	db.Documents = append(db.Documents[:index], db.Documents[index+1:]...)
	return removed
}

// ContactsFor returns a copy of the owner's contacts in insertion order.
func (db *Database) ContactsFor(userID string) []Contact {
	return append([]Contact{}, db.EmergencyContacts[userID]...)
}

func (db *Database) AddContact(userID string, contact Contact) {
	db.EmergencyContacts[userID] = append(db.EmergencyContacts[userID], contact)
}

// RemoveContact reports whether a contact with id existed for the owner.
func (db *Database) RemoveContact(userID, id string) bool {
	contacts := db.EmergencyContacts[userID]
	for i, contact := range contacts {
		if contact.ID == id {
			db.EmergencyContacts[userID] = append(contacts[:i:i], contacts[i+1:]...)
			return true
		}
	}
	return false
}
