package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"social-posts-backend/internal/models"
)

// MemoryStore keeps users and posts in process memory. It backs the "memory"
// database driver and the tests. Deleting a user removes that user's posts.
type MemoryStore struct {
	mu         sync.RWMutex
	users      map[int64]models.User
	posts      map[int64]models.Post
	nextUserID int64
	nextPostID int64
	now        func() time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[int64]models.User),
		posts: make(map[int64]models.Post),
		now:   time.Now,
	}
}

// Users returns the user repository view of the store
func (s *MemoryStore) Users() *MemoryUserRepository {
	return &MemoryUserRepository{s: s}
}

// Posts returns the post repository view of the store
func (s *MemoryStore) Posts() *MemoryPostRepository {
	return &MemoryPostRepository{s: s}
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// MemoryUserRepository is the in-memory counterpart of UserRepository
type MemoryUserRepository struct {
	s *MemoryStore
}

// Create inserts a user, enforcing email uniqueness
func (r *MemoryUserRepository) Create(ctx context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.emailOwnerLocked(user.Email) != 0 {
		return ErrDuplicateEmail
	}

	r.s.nextUserID++
	user.ID = r.s.nextUserID
	user.CreatedAt = r.s.now()
	r.s.users[user.ID] = copyUser(*user)
	return nil
}

// GetByID retrieves a user by ID
func (r *MemoryUserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	u := copyUser(user)
	return &u, nil
}

// GetByEmail retrieves a user by email
func (r *MemoryUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id := r.s.emailOwnerLocked(email)
	if id == 0 {
		return nil, ErrNotFound
	}
	u := copyUser(r.s.users[id])
	return &u, nil
}

// EmailTaken checks if the email belongs to a user other than excludeID
func (r *MemoryUserRepository) EmailTaken(ctx context.Context, email string, excludeID int64) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id := r.s.emailOwnerLocked(email)
	return id != 0 && id != excludeID, nil
}

// List retrieves all users ordered by id
func (r *MemoryUserRepository) List(ctx context.Context) ([]*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	users := make([]*models.User, 0, len(r.s.users))
	for _, user := range r.s.users {
		u := copyUser(user)
		users = append(users, &u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// Update applies the non-nil fields of upd and returns the updated user
func (r *MemoryUserRepository) Update(ctx context.Context, id int64, upd models.UserUpdate) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	user, ok := r.s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	if upd.Email != nil {
		if owner := r.s.emailOwnerLocked(*upd.Email); owner != 0 && owner != id {
			return nil, ErrDuplicateEmail
		}
		user.Email = *upd.Email
	}
	if upd.Name != nil {
		user.Name = *upd.Name
	}
	if upd.Password != nil {
		user.Password = *upd.Password
	}
	if upd.Photo != nil {
		photo := *upd.Photo
		user.Photo = &photo
	}
	r.s.users[id] = user

	u := copyUser(user)
	return &u, nil
}

// Delete deletes a user by ID together with the user's posts
func (r *MemoryUserRepository) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.users, id)
	for postID, post := range r.s.posts {
		if post.UserID == id {
			delete(r.s.posts, postID)
		}
	}
	return nil
}

// MemoryPostRepository is the in-memory counterpart of PostRepository
type MemoryPostRepository struct {
	s *MemoryStore
}

// Create inserts a post
func (r *MemoryPostRepository) Create(ctx context.Context, post *models.Post) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.nextPostID++
	post.ID = r.s.nextPostID
	post.CreatedAt = r.s.now()
	r.s.posts[post.ID] = copyPost(*post)
	return nil
}

// GetByID retrieves a post by ID
func (r *MemoryPostRepository) GetByID(ctx context.Context, id int64) (*models.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	post, ok := r.s.posts[id]
	if !ok {
		return nil, ErrNotFound
	}
	p := copyPost(post)
	return &p, nil
}

// List retrieves all posts, newest first
func (r *MemoryPostRepository) List(ctx context.Context) ([]*models.Post, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	posts := make([]*models.Post, 0, len(r.s.posts))
	for _, post := range r.s.posts {
		p := copyPost(post)
		posts = append(posts, &p)
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID > posts[j].ID
	})
	return posts, nil
}

// Delete deletes a post by ID
func (r *MemoryPostRepository) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.posts[id]; !ok {
		return ErrNotFound
	}
	delete(r.s.posts, id)
	return nil
}

func (s *MemoryStore) emailOwnerLocked(email string) int64 {
	for id, user := range s.users {
		if user.Email == email {
			return id
		}
	}
	return 0
}

func copyUser(u models.User) models.User {
	u.Photo = copyString(u.Photo)
	return u
}

func copyPost(p models.Post) models.Post {
	p.Image = copyString(p.Image)
	p.Content = copyString(p.Content)
	p.City = copyString(p.City)
	p.Country = copyString(p.Country)
	return p
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
