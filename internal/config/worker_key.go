package config

type WorkerKeyStruct struct {
	PersistProgressQueue  string
	PersistProctorQueue   string
	UploadRecordingsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	PersistProgressQueue:  "persist_progress_queue",
	PersistProctorQueue:   "persist_proctor_queue",
	UploadRecordingsQueue: "upload_recordings_queue",
}
