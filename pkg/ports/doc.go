/*
Package ports defines the driven ports (interfaces) for the form engine.

These interfaces decouple the evaluation core from external collaborators,
allowing the engine to work with different session stores, upload services
and submission backends.

# Key Interfaces

  - SessionStore: persists per-session answer state, keyed by session,
    form status and form slug.
  - UploadService: the file upload collaborator that scans and stores
    user files.
  - SubmissionService: delivers completed form data and notification
    emails.
  - Renderer: renders a named view with a data object; the engine assumes
    nothing else about templating.
*/
package ports
