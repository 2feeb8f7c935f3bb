package api

import (
	"encoding/json" // JSON body and null detection
	"io"            // Body reading
	"net/http"      // HTTP status codes
	"os"            // Upload directory
	"path/filepath" // Upload paths
	"strings"       // Content type checks
	"time"          // Cache TTL

	"cbms_backend/internal/domain" // Importing domain models
	"cbms_backend/internal/ledger" // Ledger operations and scopes
	"cbms_backend/internal/utils"  // Utility functions

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/google/uuid"       // Upload file names
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logging library
	"gorm.io/gorm"                 // GORM ORM library
)

// ProfilePhotoDir is the media subdirectory holding uploaded photos
const ProfilePhotoDir = "profile_photos"

var allowedPhotoExt = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".webp": true}

// withUserRelations preloads what NewUserResponse reads
func withUserRelations(db *gorm.DB) *gorm.DB {
	return db.Preload("ResponsibleMember").Preload("TermsAcknowledgement")
}

// loadUser reads a visible user with relations
func loadUser(c *gin.Context, db *gorm.DB, id uint) (*domain.User, error) {
	var u domain.User
	err := db.WithContext(c.Request.Context()).
		Scopes(ledger.VisibleUsers(currentUser(c)), withUserRelations).
		First(&u, id).Error
	return &u, err
}

// ListUsersHandler lists visible users ordered by first name
func ListUsersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.WithContext(c.Request.Context()).Model(&domain.User{}).Scopes(ledger.VisibleUsers(currentUser(c)))
		if role := c.Query("role"); role != "" {
			query = query.Where("users.role = ?", role) // Filter by role
		}
		query, err := paginate(c, query)
		if err != nil {
			writeError(c, err)
			return
		}
		var users []domain.User
		if err := query.Scopes(withUserRelations).Order("first_name, id").Find(&users).Error; err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, mapAll(users, NewUserResponse))
	}
}

// GetUserHandler returns one visible user
func GetUserHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		u, err := loadUser(c, db, id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, NewUserResponse(u))
	}
}

// MeHandler returns the caller
func MeHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := loadUser(c, db, currentUser(c).ID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, NewUserResponse(u))
	}
}

// MyMembersHandler lists the caller's assigned members; responsible members only
func MyMembersHandler(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		me := currentUser(c)
		if !me.IsLeader() {
			c.JSON(http.StatusForbidden, gin.H{"error": "This endpoint is only available for responsible members."})
			return
		}
		var members []domain.User
		err := db.WithContext(c.Request.Context()).
			Scopes(withUserRelations).
			Where("responsible_member_id = ? AND id <> ?", me.ID, me.ID).
			Order("first_name, id").
			Find(&members).Error
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, mapAll(members, NewUserResponse))
	}
}

// AllPublicHandler lists every user with the safe public fields, cached in Redis
func AllPublicHandler(db *gorm.DB, rdb *redis.Client, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		var cached []PublicUserResponse
		// If cached data found, return it
		if found, err := utils.GetCache(ctx, rdb, utils.PublicUsersKey, &cached); err == nil && found {
			c.JSON(http.StatusOK, cached)
			return
		}
		var users []domain.User
		if err := db.WithContext(ctx).Preload("TermsAcknowledgement").Order("first_name, id").Find(&users).Error; err != nil {
			writeError(c, err)
			return
		}
		resp := mapAll(users, NewPublicUserResponse)
		// Cache the response for future requests
		_ = utils.SetCache(ctx, rdb, utils.PublicUsersKey, resp, ttl)
		c.JSON(http.StatusOK, resp)
	}
}

// CreateUserHandler registers a user; admins only. Accepts JSON or multipart with profile_photo
func CreateUserHandler(l *ledger.Ledger, mediaRoot string) gin.HandlerFunc {
	return func(c *gin.Context) {
		in, ok := bindUserInput(c, mediaRoot)
		if !ok {
			return
		}
		created, err := l.CreateUser(c.Request.Context(), currentUser(c), in)
		if err != nil {
			discardPhoto(mediaRoot, in)
			writeError(c, err)
			return
		}
		u, err := loadUser(c, l.DB(), created.ID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, NewUserResponse(u))
	}
}

// UpdateUserHandler edits a user. Accepts JSON or multipart with profile_photo
func UpdateUserHandler(l *ledger.Ledger, mediaRoot string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		in, ok := bindUserInput(c, mediaRoot)
		if !ok {
			return
		}
		if _, err := l.UpdateUser(c.Request.Context(), currentUser(c), id, in); err != nil {
			discardPhoto(mediaRoot, in)
			writeError(c, err)
			return
		}
		u, err := loadUser(c, l.DB(), id)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, NewUserResponse(u))
	}
}

// DeleteUserHandler removes a user; admins only
func DeleteUserHandler(l *ledger.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		if err := l.DeleteUser(c.Request.Context(), currentUser(c), id); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// bindUserInput reads a user body from JSON or multipart form data and stores an uploaded photo
func bindUserInput(c *gin.Context, mediaRoot string) (ledger.UserInput, bool) {
	var in ledger.UserInput
	if strings.HasPrefix(c.ContentType(), "multipart/") || c.ContentType() == "application/x-www-form-urlencoded" {
		if err := c.ShouldBind(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
			return in, false
		}
		// An empty form value unassigns the leader
		if v, ok := c.GetPostForm("responsible_member"); ok && strings.TrimSpace(v) == "" {
			in.ResponsibleMemberID = nil
			in.ClearLeader = true
		}
		if _, err := c.FormFile("profile_photo"); err == nil {
			path, err := saveProfilePhoto(c, mediaRoot)
			if err != nil {
				writeError(c, err)
				return in, false
			}
			in.ProfilePhoto = &path
		}
		return in, true
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return in, false
	}
	if err := json.Unmarshal(body, &in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return in, false
	}
	// "responsible_member": null unassigns the leader
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err == nil {
		if v, ok := raw["responsible_member"]; ok && string(v) == "null" {
			in.ClearLeader = true
		}
	}
	return in, true
}

// saveProfilePhoto stores the profile_photo upload under mediaRoot and returns its relative path
func saveProfilePhoto(c *gin.Context, mediaRoot string) (string, error) {
	file, err := c.FormFile("profile_photo")
	if err != nil {
		return "", err
	}
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedPhotoExt[ext] {
		return "", ledger.Invalid("profile_photo", "Upload a valid image.")
	}
	dir := filepath.Join(mediaRoot, ProfilePhotoDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := uuid.NewString() + ext // Stored under a random name
	if err := c.SaveUploadedFile(file, filepath.Join(dir, name)); err != nil {
		return "", err
	}
	logrus.WithFields(logrus.Fields{
		"file": name,      // Stored file name
		"size": file.Size, // Upload size in bytes
	}).Info("Profile photo uploaded")
	return ProfilePhotoDir + "/" + name, nil
}

// discardPhoto removes a photo stored for a request the ledger rejected
func discardPhoto(mediaRoot string, in ledger.UserInput) {
	if in.ProfilePhoto == nil {
		return
	}
	if err := os.Remove(filepath.Join(mediaRoot, filepath.FromSlash(*in.ProfilePhoto))); err != nil && !os.IsNotExist(err) {
		logrus.WithError(err).WithField("file", *in.ProfilePhoto).Warn("Failed to remove rejected profile photo")
	}
}
